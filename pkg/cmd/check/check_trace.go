package check

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/replay"
)

func NewCheckTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "checks that the recorded karts can be mapped onto the driveline",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := checkDriveline(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			logger := log.GetFromContext(cmd.Context()).Named("check")
			t, err := replay.LoadFile(config.TraceFile)
			if err != nil {
				logger.Error("invalid trace",
					log.String("file", config.TraceFile),
					log.ErrorField(err))
				return err
			}
			offRoad := countOffRoad(d, t)
			fmt.Fprintf(cmd.OutOrStdout(), "frames:       %d\n", len(t.Frames))
			fmt.Fprintf(cmd.OutOrStdout(), "duration:     %.2f\n", t.Duration())
			for _, k := range t.Karts {
				fmt.Fprintf(cmd.OutOrStdout(), "kart %-8s off road in %d samples\n",
					k.ID, offRoad[k.ID])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&config.TraceFile, "trace", "trace.yml", "trace file")
	return cmd
}

// countOffRoad counts the samples per kart that are outside the corridor
func countOffRoad(d *driveline.Driveline, t *replay.Trace) map[model.KartID]int {
	ret := make(map[model.KartID]int)
	hints := make(map[model.KartID]int)
	for _, f := range t.Frames {
		for id, s := range f.Samples {
			hint, ok := hints[id]
			if !ok {
				hint = driveline.Unknown
			}
			sector := d.Locate(s.Position, hint, true)
			if sector == driveline.Unknown {
				ret[id]++
			}
			hints[id] = sector
		}
	}
	return ret
}
