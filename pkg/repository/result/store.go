package result

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/model"
)

// PositionFunc resolves the race position of a kart at the time it finished.
// It is called from Handle, so Handle has to run on the goroutine driving the
// race.
type PositionFunc func(id model.KartID) int

// Store persists the results of a race as its events arrive.
type Store struct {
	pool     *pgxpool.Pool
	raceID   uuid.UUID
	position PositionFunc
	tracer   trace.Tracer
	l        *log.Logger
}

type StoreOption func(s *Store)

func WithPositionFunc(f PositionFunc) StoreOption {
	return func(s *Store) {
		s.position = f
	}
}

func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *Store) {
		s.tracer = tracer
	}
}

func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		s.l = l
	}
}

func NewStore(pool *pgxpool.Pool, raceID uuid.UUID, opts ...StoreOption) *Store {
	ret := &Store{
		pool:     pool,
		raceID:   raceID,
		position: func(model.KartID) int { return 0 },
		l:        log.Default().Named("result"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("tpe")
	}
	return ret
}

// Init stores the race entry.
func (s *Store) Init(ctx context.Context, r *Race) error {
	r.ID = s.raceID
	return CreateRace(ctx, s.pool, r)
}

// Handle stores the result relevant parts of e. Other events are ignored.
func (s *Store) Handle(ctx context.Context, e model.Event) error {
	ctx, span := s.tracer.Start(ctx, "result.Handle",
		trace.WithAttributes(
			attribute.String("race", s.raceID.String()),
			attribute.String("kind", e.Kind().String()),
			attribute.String("kart", string(e.Kart()))))
	defer span.End()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		switch ev := e.(type) {
		case model.LapCompleted:
			return AddLap(ctx, tx, s.raceID, &Lap{
				Kart:     ev.Kart(),
				Lap:      ev.Lap,
				LapTime:  ev.LapTime,
				RaceTime: ev.Time(),
			})
		case model.RaceFinished:
			return AddFinish(ctx, tx, s.raceID, &Finish{
				Kart:       ev.Kart(),
				Position:   s.position(ev.Kart()),
				FinishTime: ev.FinishTime,
				Estimated:  ev.Estimated,
			})
		case model.NewFastestLap:
			return UpdateFastestLap(ctx, tx, s.raceID, ev)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.l.Error("could not store result",
			log.String("kind", e.Kind().String()),
			log.String("kart", string(e.Kart())),
			log.ErrorField(err))
	}
	return err
}
