//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/db/migrate"
	database "github.com/mpapenbr/trackprogress/pkg/db/postgres"
)

// SetupTestDb starts (or reuses) a postgres container and returns a pool for
// the migrated test database.
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal("invalid port", log.ErrorField(err))
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("trackprogress-test"),
	)
	if err != nil {
		log.Fatal("could not start postgres container", log.ErrorField(err))
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbUrl := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return setupWithUrl(dbUrl)
}

// SetupExternalTestDb uses an already running database.
func SetupExternalTestDb(dbUrl string) *pgxpool.Pool {
	return setupWithUrl(dbUrl)
}

func setupWithUrl(dbUrl string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbUrl); err != nil {
		log.Fatal("could not migrate test database", log.ErrorField(err))
	}
	return database.InitWithUrl(dbUrl)
}

func ClearResultTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from finish")
	pool.Exec(context.Background(), "delete from lap")
	pool.Exec(context.Background(), "delete from race")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearResultTables(pool)
}
