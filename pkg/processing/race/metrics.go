package race

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/trackprogress/pkg/model"
)

type raceMetrics struct {
	attrs    attribute.Set
	frames   metric.Int64Counter
	events   metric.Int64Counter
	duration metric.Float64Histogram
}

func newRaceMetrics(raceID string) *raceMetrics {
	meter := otel.Meter("tpe.race")
	ret := &raceMetrics{
		attrs: attribute.NewSet(attribute.String("race", raceID)),
	}
	//nolint:errcheck // by design
	ret.frames, _ = meter.Int64Counter("tpe.race.frames",
		metric.WithDescription("number of processed frames"))
	//nolint:errcheck // by design
	ret.events, _ = meter.Int64Counter("tpe.race.events",
		metric.WithDescription("number of published events"))
	//nolint:errcheck // by design
	ret.duration, _ = meter.Float64Histogram("tpe.race.step.duration",
		metric.WithDescription("time to process a frame"),
		metric.WithUnit("ms"))
	return ret
}

func (m *raceMetrics) frame(d time.Duration) {
	ctx := context.Background()
	m.frames.Add(ctx, 1, metric.WithAttributeSet(m.attrs))
	m.duration.Record(ctx, float64(d.Microseconds())/1000.0,
		metric.WithAttributeSet(m.attrs))
}

func (m *raceMetrics) event(kind model.EventKind) {
	m.events.Add(context.Background(), 1,
		metric.WithAttributeSet(m.attrs),
		metric.WithAttributes(attribute.String("kind", kind.String())))
}
