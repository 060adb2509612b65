package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenTestDB opens the database named by TEST_PG_DSN and drops any tables
// left over from earlier runs. It skips the test if TEST_PG_DSN is not set.
// Callers run migrations themselves, which keeps this package free of a
// dependency on db.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS verification_outcomes CASCADE`,
		`DROP TABLE IF EXISTS schema_migrations CASCADE`,
	} {
		if _, err := database.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to reset database: %v", err)
		}
	}
	return database
}
