package simulate

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/race"
)

func printStandings(w io.Writer, r *race.Race) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tKART\tLAP\tGAP\tLAPTIME\tSTATE")
	for _, s := range r.Standings() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Position, s.Kart, s.LapText, s.GapText, s.LapTimeText, stateText(s))
	}
	//nolint:errcheck // console output
	tw.Flush()
}

func stateText(s race.Standing) string {
	flags := lo.Compact([]string{
		lo.Ternary(s.Finished, "finished "+race.FormatRaceTime(s.FinishTime), ""),
		lo.Ternary(s.Eliminated, "eliminated", ""),
		lo.Ternary(!s.OnRoad && !s.Finished, "off road", ""),
		lo.Ternary(s.WrongWay, "wrong way", ""),
	})
	if len(flags) == 0 {
		return "racing"
	}
	return fmt.Sprint(flags)
}

func logEvent(l *log.Logger, e model.Event) {
	fields := []log.Field{
		log.String("kart", string(e.Kart())),
		log.Float64("clock", e.Time()),
	}
	switch ev := e.(type) {
	case model.LapCompleted:
		fields = append(fields, log.Int("lap", ev.Lap),
			log.String("lapTime", race.FormatRaceTime(ev.LapTime)))
	case model.NewFastestLap:
		fields = append(fields, log.Int("lap", ev.Lap),
			log.String("lapTime", race.FormatRaceTime(ev.LapTime)))
	case model.RaceFinished:
		fields = append(fields, log.String("time", race.FormatRaceTime(ev.FinishTime)),
			log.Bool("estimated", ev.Estimated))
	case model.ShortcutDetected:
		fields = append(fields, log.Int("targetSector", ev.TargetSector))
	case model.ForcedRescue:
		fields = append(fields, log.Int("targetSector", ev.TargetSector))
	case model.WrongWay:
		fields = append(fields, log.Bool("on", ev.On))
	}
	l.Info(e.Kind().String(), fields...)
}
