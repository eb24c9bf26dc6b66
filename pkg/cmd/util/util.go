package util

import (
	"context"
	"os"
	"time"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/config"
	"github.com/mpapenbr/trackprogress/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger configured by the CLI values and installs
// it as default logger.
func SetupLogger() *log.Logger {
	logger := newLogger(config.LogLevel)
	if config.LogFilter != "" {
		filtered, err := logger.Filtered(config.LogFilter)
		if err != nil {
			logger.Warn("Invalid log filter, ignoring it",
				log.String("filter", config.LogFilter),
				log.ErrorField(err))
		} else {
			logger = filtered
		}
	}
	log.ResetDefault(logger)
	return logger
}

// SQLLogger is used to log database statements.
func SQLLogger() *log.Logger {
	return newLogger(config.SQLLogLevel).Named("sql")
}

func newLogger(level string) *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			ParseLogLevel(level, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			ParseLogLevel(level, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

func WaitForServicesTimeout() time.Duration {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	return timeout
}

// WaitForDB blocks until the configured database accepts connections.
func WaitForDB(ctx context.Context) error {
	return utils.WaitForTCP(ctx, utils.ExtractFromDBURL(config.DB), WaitForServicesTimeout())
}

// WaitForNats blocks until the configured NATS server accepts connections.
func WaitForNats(ctx context.Context) error {
	return utils.WaitForTCP(ctx, utils.ExtractFromNatsURL(config.NatsURL),
		WaitForServicesTimeout())
}
