package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/studio-scheduler/database"
)

const bootstrapLockID int64 = 734120981

// BootstrapSchema applies the embedded DDL in file-name order inside a single
// transaction. A transaction-level advisory lock serializes concurrent callers
// (API replicas and the CLI). Every statement is idempotent.
func BootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	files, err := sqlassets.SchemaFiles()
	if err != nil {
		return fmt.Errorf("read schema files: %w", err)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID); err != nil {
		return fmt.Errorf("acquire bootstrap lock: %w", err)
	}

	for _, file := range files {
		for _, stmt := range splitStatements(file.SQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", file.Name, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// splitStatements breaks a DDL file on semicolons and drops comment-only chunks.
// The embedded files contain no semicolons inside literals or function bodies.
func splitStatements(sql string) []string {
	raw := strings.Split(sql, ";")
	out := make([]string, 0, len(raw))
	for _, chunk := range raw {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
