package root

import (
	"context"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the studio admin CLI. Subcommands (auth, bootstrap, etc.) are attached here.
var rootCmd = &cobra.Command{
	Use:           "studioctl",
	Short:         "Studio scheduler admin CLI",
	Long:          "Administrative utilities for the studio scheduler (schema bootstrap, tenants, slot scheduling, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
