package bootstrap

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/cliconfig"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources (database schema)",
	}

	cliconfig.AddDatabaseFlags(cmd)
	cmd.AddCommand(schemaCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded DDL (idempotent; safe to run against a live database)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pool, err := cliconfig.OpenPool(ctx, cmd)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapSchema(ctx, pool); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema bootstrap complete.")
			return nil
		},
	}
}
