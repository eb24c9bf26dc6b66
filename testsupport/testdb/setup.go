package testdb

import (
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/trackprogress/testsupport/tcpostgres"
)

// InitTestDb returns a pool to an empty, migrated database. The database given
// by TESTDB_URL is used if set, otherwise a postgres container is started.
// Skipped in short mode without TESTDB_URL.
func InitTestDb(t *testing.T) *pgxpool.Pool {
	t.Helper()
	var pool *pgxpool.Pool
	if url := os.Getenv("TESTDB_URL"); url != "" {
		pool = tcpg.SetupExternalTestDb(url)
	} else {
		if testing.Short() {
			t.Skip("skipping database test in short mode")
		}
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
