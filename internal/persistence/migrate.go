package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed migrations/0001_init.up.sql
var migration0001Up string

func MigratePostgres(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("nil database handle")
	}
	// Serialize migration DDL across concurrent processes/tests.
	if _, err := db.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, int64(73091184426550317)); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, int64(73091184426550317))
	}()

	if _, err := db.ExecContext(ctx, migration0001Up); err != nil {
		return fmt.Errorf("apply migration 0001_init.up.sql: %w", err)
	}
	return nil
}
