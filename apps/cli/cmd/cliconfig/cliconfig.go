// Package cliconfig holds the connection flags shared by the CLI commands.
package cliconfig

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
)

const (
	flagDatabaseURL = "database-url"
	flagLogLevel    = "log-level"
)

// AddDatabaseFlags registers --database-url (defaulting to $DATABASE_URL) and --log-level on cmd.
func AddDatabaseFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(flagDatabaseURL, os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
	cmd.PersistentFlags().String(flagLogLevel, "info", "log level (debug, info, warn, error)")
}

// Logger builds the console logger used by CLI commands.
func Logger(cmd *cobra.Command) (*zap.Logger, error) {
	level, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return nil, err
	}
	return platformlogging.NewLogger(platformlogging.Config{
		Component: "cli",
		Level:     level,
		Console:   true,
	})
}

// OpenPool connects to the database named by --database-url.
func OpenPool(ctx context.Context, cmd *cobra.Command) (*pgxpool.Pool, error) {
	databaseURL, err := cmd.Flags().GetString(flagDatabaseURL)
	if err != nil {
		return nil, err
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("--%s or DATABASE_URL is required", flagDatabaseURL)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, nil
}

// OpenStores connects and builds every store. The caller closes the returned pool.
func OpenStores(ctx context.Context, cmd *cobra.Command) (*pgxpool.Pool, *persistence.Stores, error) {
	pool, err := OpenPool(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	stores, err := persistence.NewStores(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, fmt.Errorf("init stores: %w", err)
	}
	return pool, stores, nil
}
