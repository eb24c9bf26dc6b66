package simulate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pgx-contrib/pgxtrace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/cmd/util"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/db/postgres"
	"github.com/mpapenbr/trackprogress/pkg/driveline"
	"github.com/mpapenbr/trackprogress/pkg/events"
	natsevents "github.com/mpapenbr/trackprogress/pkg/events/nats"
	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/processing/race"
	"github.com/mpapenbr/trackprogress/pkg/replay"
	"github.com/mpapenbr/trackprogress/pkg/repository/result"
	"github.com/mpapenbr/trackprogress/pkg/utils/broadcast"
)

type simConfig struct {
	parallel       bool
	autoRescue     bool
	storeResults   bool
	terminate      bool
	realtime       float64
	standingsEvery int
	laps           int
	standingsKV    string
}

var simCfg simConfig

func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "replays a recorded race on a driveline and prints the standings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadRaceSettings(viper.GetViper())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("laps") {
				settings.TotalLaps = simCfg.laps
				settings.HasLaps = simCfg.laps > 0
			}
			return runSimulation(cmd.Context(), settings)
		},
	}
	cmd.Flags().StringVar(&config.DrivelineFile, "driveline", "driveline.yml",
		"driveline file")
	cmd.Flags().StringVar(&config.TraceFile, "trace", "trace.yml",
		"file with recorded kart positions")
	cmd.Flags().StringVar(&config.NatsURL, "nats-url", "",
		"publish race events to this NATS server (disabled if empty)")
	cmd.Flags().StringVar(&simCfg.standingsKV, "standings-bucket",
		natsevents.DefaultStandingsBucket,
		"JetStream key value bucket for the standings (disabled if empty)")
	cmd.Flags().BoolVar(&simCfg.storeResults, "store-results", false,
		"store laps and finish results in the database given by --db")
	cmd.Flags().BoolVar(&simCfg.parallel, "parallel", false,
		"update the karts of a frame in parallel")
	cmd.Flags().BoolVar(&simCfg.autoRescue, "auto-rescue", true,
		"complete rescues immediately")
	cmd.Flags().BoolVar(&simCfg.terminate, "terminate", true,
		"terminate the race after the last frame")
	cmd.Flags().Float64Var(&simCfg.realtime, "realtime", 0,
		"pace the replay by the frame clock with this factor (0 means: as fast as possible)")
	cmd.Flags().IntVar(&simCfg.standingsEvery, "standings-every", 0,
		"print the standings every n frames (0 means: only at the end)")
	cmd.Flags().IntVar(&simCfg.laps, "laps", 3,
		"number of laps, 0 disables lap counting (overrides race.totalLaps)")
	return cmd
}

//nolint:funlen,cyclop // by design
func runSimulation(ctx context.Context, settings config.RaceSettings) error {
	logger := log.GetFromContext(ctx).Named("simulate")
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if config.EnableTelemetry {
		logger.Info("Enabling telemetry")
		telemetry, err := config.SetupTelemetry(ctx)
		if err != nil {
			logger.Warn("Could not setup telemetry", log.ErrorField(err))
		} else {
			defer telemetry.Shutdown()
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			logger.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	dl, err := driveline.LoadFile(config.DrivelineFile,
		append(race.DrivelineOptions(settings), driveline.WithLogger(logger))...)
	if err != nil {
		logger.Error("could not load driveline", log.ErrorField(err))
		return err
	}
	trace, err := replay.LoadFile(config.TraceFile)
	if err != nil {
		logger.Error("could not load trace", log.ErrorField(err))
		return err
	}
	logger.Info("Starting simulation",
		log.String("driveline", dl.Name()),
		log.Int("sectors", dl.NumSectors()),
		log.Float64("length", dl.TotalLength()),
		log.Int("karts", len(trace.Karts)),
		log.Int("frames", len(trace.Frames)))

	raceID := uuid.New()
	evChan := events.NewChannel(256)
	bcst := broadcast.NewServer[model.Event]("events", evChan.C(),
		broadcast.WithRace[model.Event](raceID.String()),
		broadcast.WithSendTimeout[model.Event](time.Second),
		broadcast.WithBufferSize[model.Event](64))

	var wg sync.WaitGroup
	consume := func(handle func(model.Event)) {
		ch := bcst.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range ch {
				handle(e)
			}
		}()
	}
	consume(func(e model.Event) { logEvent(logger, e) })

	var publisher *natsevents.Publisher
	if config.NatsURL != "" {
		if publisher, err = setupNats(ctx, raceID.String()); err != nil {
			return err
		}
		consume(publisher.Publish)
	}

	// the result store needs the positions of the current frame, so it runs
	// synchronously with the race
	sink := events.Sink(evChan)
	var r *race.Race
	if simCfg.storeResults {
		store, cleanup, err := setupStore(ctx, raceID, func(id model.KartID) int {
			return r.Position(id)
		})
		if err != nil {
			return err
		}
		defer cleanup()
		if err := store.Init(ctx, &result.Race{
			Name:      trace.Name,
			Driveline: dl.Name(),
			TotalLaps: settings.TotalLaps,
			HasLaps:   settings.HasLaps,
		}); err != nil {
			logger.Error("could not store race", log.ErrorField(err))
			return err
		}
		sink = events.Tee(sink, events.SinkFunc(func(e model.Event) {
			//nolint:errcheck // logged by the store
			store.Handle(ctx, e)
		}))
	}

	opts := []race.Option{
		race.WithID(raceID.String()),
		race.WithSettings(settings),
		race.WithSink(sink),
		race.WithLogger(logger.Named("race")),
	}
	if simCfg.parallel {
		opts = append(opts, race.WithParallelUpdates())
	}
	if simCfg.autoRescue {
		opts = append(opts, race.WithAutoRescue())
	}
	if r, err = race.NewRace(dl, opts...); err != nil {
		return err
	}

	frames := 0
	playerOpts := []replay.PlayerOption{
		replay.WithLogger(logger.Named("replay")),
		replay.WithRealtime(simCfg.realtime),
		replay.WithFrameCallback(func(r *race.Race, f *replay.Frame) {
			frames++
			if simCfg.standingsEvery > 0 && frames%simCfg.standingsEvery == 0 {
				printStandings(os.Stdout, r)
			}
			if publisher != nil {
				if err := publisher.PutStandings(r.Standings()); err != nil {
					logger.Warn("could not store standings", log.ErrorField(err))
				}
			}
		}),
	}
	if simCfg.terminate {
		playerOpts = append(playerOpts, replay.WithTerminate())
	}
	player := replay.NewPlayer(trace, playerOpts...)
	if err = player.Register(r); err != nil {
		return err
	}
	runErr := player.Run(ctx, r)

	evChan.Close()
	<-bcst.Done()
	wg.Wait()

	if publisher != nil {
		if err := publisher.PutStandings(r.Standings()); err != nil {
			logger.Warn("could not store standings", log.ErrorField(err))
		}
		if err := publisher.Flush(); err != nil {
			logger.Warn("could not flush nats connection", log.ErrorField(err))
		}
	}
	fmt.Fprintf(os.Stdout, "race %s after %.3fs\n", r.ID(), r.Clock())
	printStandings(os.Stdout, r)
	if best, ok := r.FastestLap(); ok {
		fmt.Fprintf(os.Stdout, "fastest lap: %s lap %d %s\n",
			best.Kart(), best.Lap, race.FormatRaceTime(best.LapTime))
	}
	return runErr
}

func setupNats(ctx context.Context, raceID string) (*natsevents.Publisher, error) {
	logger := log.GetFromContext(ctx).Named("nats")
	if err := util.WaitForNats(ctx); err != nil {
		logger.Error("nats not ready", log.ErrorField(err))
		return nil, err
	}
	conn, err := nats.Connect(config.NatsURL, nats.Name("tpe-simulate"))
	if err != nil {
		logger.Error("could not connect to nats", log.ErrorField(err))
		return nil, err
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	opts := []natsevents.Option{
		natsevents.WithContext(ctx),
		natsevents.WithLogger(logger),
	}
	if simCfg.standingsKV != "" {
		opts = append(opts, natsevents.WithStandings(simCfg.standingsKV))
	}
	return natsevents.NewPublisher(conn, raceID, opts...)
}

//nolint:whitespace // can't make the linters happy
func setupStore(
	ctx context.Context,
	raceID uuid.UUID,
	positions result.PositionFunc,
) (store *result.Store, cleanup func(), err error) {
	logger := log.GetFromContext(ctx).Named("db")
	if err := util.WaitForDB(ctx); err != nil {
		logger.Error("database not ready", log.ErrorField(err))
		return nil, nil, err
	}
	pgTracer := pgxtrace.CompositeQueryTracer{
		postgres.NewMyTracer(util.SQLLogger(), log.DebugLevel),
	}
	if config.EnableTelemetry {
		pgTracer = append(pgTracer, postgres.NewOtlpTracer())
	}
	pool, err := postgres.NewPool(ctx, config.DB, postgres.WithTracer(pgTracer))
	if err != nil {
		logger.Error("could not connect to database", log.ErrorField(err))
		return nil, nil, err
	}
	store = result.NewStore(pool, raceID,
		result.WithPositionFunc(positions),
		result.WithLogger(logger))
	return store, pool.Close, nil
}
