package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/cmd/util"
	"github.com/mpapenbr/trackprogress/pkg/config"
	dbmigrate "github.com/mpapenbr/trackprogress/pkg/db/migrate"
)

var (
	downSteps   int
	showVersion bool
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration of the result schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceUrl,
		"migration-source-url",
		"m",
		"",
		"url to migration files (default: embedded migrations)")
	cmd.Flags().IntVar(&downSteps,
		"down",
		0,
		"revert this number of migrations instead of migrating up")
	cmd.Flags().BoolVar(&showVersion,
		"show-version",
		false,
		"print the current schema version and exit")

	return cmd
}

func startMigration(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := util.WaitForDB(ctx); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}
	dbURL := prepareURLForDB(config.DB)

	switch {
	case showVersion:
		v, dirty, err := dbmigrate.Version(dbURL)
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d (dirty: %v)\n", v, dirty)
		return nil
	case downSteps > 0:
		log.Info("Reverting migrations", log.Int("steps", downSteps))
		return dbmigrate.MigrateDbDown(dbURL, downSteps)
	case config.MigrationSourceUrl != "":
		return migrateFromSource(config.MigrationSourceUrl, dbURL)
	default:
		log.Info("Using embedded migrations")
		return dbmigrate.MigrateDb(dbURL)
	}
}

func migrateFromSource(source, dbURL string) error {
	log.Info("Using migrations files at", log.String("source", source))
	m, err := migrate.New(source,
		strings.Replace(strings.Replace(dbURL, "postgresql://", "pgx5://", 1),
			"postgres://", "pgx5://", 1))
	if err != nil {
		return fmt.Errorf("could not create migration: %w", err)
	}
	defer m.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No Migration required")
		return nil
	}
	return err
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
