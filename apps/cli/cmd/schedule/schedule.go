package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/cliconfig"
	schedulerrepo "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/repo"
	schedulerservice "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/solar"
)

// Command groups scheduler helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Placeholder slot scheduler",
	}

	cliconfig.AddDatabaseFlags(cmd)
	cmd.AddCommand(runCommand())
	return cmd
}

func runCommand() *cobra.Command {
	var (
		tenantID      string
		all           bool
		parallelism   int
		solarBaseURL  string
		solarTimeout  time.Duration
		redisAddr     string
		redisPassword string
		redisDB       int
		redisPrefix   string
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Regenerate the sunrise and dusk placeholders of one tenant or every tenant",
		Long: "Regenerate placeholders for the next 30 local days. A tenant whose solar data cannot be fetched\n" +
			"is reported as a no-op and keeps its existing placeholders. With --redis-addr the shared\n" +
			"booking range cache is invalidated after each successful run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (tenantID != "") {
				return errors.New("exactly one of --tenant-id or --all is required")
			}

			ctx := cmd.Context()

			logger, err := cliconfig.Logger(cmd)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			pool, stores, err := cliconfig.OpenStores(ctx, cmd)
			if err != nil {
				return err
			}
			defer persistence.ClosePool(pool)

			provider, err := solar.NewOpenMeteoClient(solar.OpenMeteoConfig{BaseURL: solarBaseURL, Timeout: solarTimeout}, logger)
			if err != nil {
				return fmt.Errorf("init solar provider: %w", err)
			}

			var rangeCache cache.Cache
			if redisAddr != "" {
				client, err := cache.NewRedisClient(ctx, redisAddr, redisPassword, redisDB, logger)
				if err != nil {
					return fmt.Errorf("init redis: %w", err)
				}
				defer func() { _ = client.Close() }()
				rangeCache = cache.NewRedis(client, redisPrefix)
			}

			svc := schedulerservice.New(
				schedulerrepo.NewPostgresRepository(stores.Tenants, stores.Bookings),
				provider,
				nil,
				rangeCache,
				logger,
			)

			ids, err := targetIDs(ctx, stores.Tenants, tenantID)
			if err != nil {
				return err
			}
			logger.Info("scheduler run starting", zap.Int("tenants", len(ids)), zap.Int("parallelism", parallelism))

			results, runErr := svc.RunAll(ctx, ids, parallelism)
			writeResults(cmd.OutOrStdout(), results)
			return runErr
		},
	}

	c.Flags().StringVar(&tenantID, "tenant-id", "", "run a single tenant")
	c.Flags().BoolVar(&all, "all", false, "run every registered tenant")
	c.Flags().IntVar(&parallelism, "parallelism", 4, "maximum concurrent tenant runs")
	c.Flags().StringVar(&solarBaseURL, "solar-base-url", "https://api.open-meteo.com", "Open-Meteo base URL")
	c.Flags().DurationVar(&solarTimeout, "solar-timeout", 10*time.Second, "solar provider request timeout")
	c.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address of the shared range cache (optional)")
	c.Flags().StringVar(&redisPassword, "redis-password", "", "Redis password")
	c.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database")
	c.Flags().StringVar(&redisPrefix, "redis-prefix", "studio", "Redis key prefix used by the API")

	return c
}

type tenantLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

func targetIDs(ctx context.Context, tenants tenantLister, tenantID string) ([]uuid.UUID, error) {
	if tenantID != "" {
		id, err := uuid.Parse(tenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid --tenant-id: %w", err)
		}
		return []uuid.UUID{id}, nil
	}

	ids, err := tenants.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ids, nil
}

func writeResults(w io.Writer, results []schedulerservice.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TENANT\tFROM\tDELETED\tCREATED\tNOTE")
	for _, r := range results {
		note := ""
		if r.NoOp {
			note = "no-op: " + r.Reason
		}
		from := "-"
		if !r.From.IsZero() {
			from = r.From.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.TenantID, from, r.Deleted, r.Created, note)
	}
	_ = tw.Flush()
}
