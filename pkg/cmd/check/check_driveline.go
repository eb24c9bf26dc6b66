package check

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
)

func NewCheckDrivelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "driveline",
		Short: "loads the driveline in strict mode and prints a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := checkDriveline(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
}

func checkDriveline(ctx context.Context, out io.Writer) (*driveline.Driveline, error) {
	logger := log.GetFromContext(ctx).Named("check")
	d, err := driveline.LoadFile(config.DrivelineFile,
		driveline.WithStrictBoundaries(),
		driveline.WithToleranceFactor(toleranceFactor),
		driveline.WithLogger(logger))
	if err != nil {
		logger.Error("invalid driveline",
			log.String("file", config.DrivelineFile),
			log.ErrorField(err))
		return nil, err
	}
	printSummary(out, d)
	return d, nil
}

func printSummary(out io.Writer, d *driveline.Driveline) {
	ext := d.Extent()
	fmt.Fprintf(out, "name:         %s\n", d.Name())
	fmt.Fprintf(out, "sectors:      %d\n", d.NumSectors())
	fmt.Fprintf(out, "total length: %.2f\n", d.TotalLength())
	fmt.Fprintf(out, "extent:       %.2f x %.2f\n", ext.Width(), ext.Depth())
	shortest, longest := d.Vertex(0).SegmentLength, d.Vertex(0).SegmentLength
	for i := range d.NumSectors() {
		l := d.Vertex(i).SegmentLength
		shortest = min(shortest, l)
		longest = max(longest, l)
	}
	fmt.Fprintf(out, "segments:     %.2f .. %.2f\n", shortest, longest)
}
