package tenantcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/cliconfig"
	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/repo"
	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
)

// Command groups tenant-related helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (create, set-hours, list)",
	}

	cliconfig.AddDatabaseFlags(cmd)
	cmd.AddCommand(createCommand())
	cmd.AddCommand(setHoursCommand())
	cmd.AddCommand(listCommand())
	return cmd
}

// withService opens the database and runs fn with a tenants service.
func withService(ctx context.Context, cmd *cobra.Command, fn func(svc *service.Service) error) error {
	pool, stores, err := cliconfig.OpenStores(ctx, cmd)
	if err != nil {
		return err
	}
	defer persistence.ClosePool(pool)

	return fn(service.New(repo.NewPostgresRepository(stores.Tenants)))
}

func createCommand() *cobra.Command {
	var (
		tenantID   string
		tenantSlug string
		tenantName string
		timezone   string
		latitude   float64
		longitude  float64
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant (idempotent by slug)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			input := service.CreateInput{
				Slug:        tenantSlug,
				DisplayName: tenantName,
				Timezone:    timezone,
				Latitude:    latitude,
				Longitude:   longitude,
			}
			if tenantID != "" {
				id, err := uuid.Parse(tenantID)
				if err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
				input.ID = &id
			}

			return withService(ctx, cmd, func(svc *service.Service) error {
				t, err := svc.Create(ctx, input)
				if errors.Is(err, service.ErrConflictSlug) {
					existing, getErr := svc.GetBySlug(ctx, tenantSlug)
					if getErr != nil {
						return fmt.Errorf("tenant exists but could not fetch: %w", getErr)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Tenant already registered: %s (%s)\n", existing.Slug, existing.ID)
					return nil
				}
				if err != nil {
					return describe(err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s) tz=%s\n", t.Slug, t.ID, t.Timezone)
				return nil
			})
		},
	}

	c.Flags().StringVar(&tenantID, "id", "", "tenant id (optional; generated when empty)")
	c.Flags().StringVar(&tenantSlug, "slug", "", "tenant slug")
	c.Flags().StringVar(&tenantName, "name", "", "display name (defaults to slug)")
	c.Flags().StringVar(&timezone, "timezone", "", "IANA timezone, e.g. Australia/Sydney")
	c.Flags().Float64Var(&latitude, "latitude", 0, "studio latitude")
	c.Flags().Float64Var(&longitude, "longitude", 0, "studio longitude")

	_ = c.MarkFlagRequired("slug")
	_ = c.MarkFlagRequired("timezone")
	_ = c.MarkFlagRequired("latitude")
	_ = c.MarkFlagRequired("longitude")

	return c
}

func setHoursCommand() *cobra.Command {
	var (
		tenantRef string
		rawRules  []string
	)

	c := &cobra.Command{
		Use:   "set-hours",
		Short: "Replace the weekday slot rules of a tenant",
		Long: "Replace the weekday slot rules of a tenant. Each --rule is weekday:sunrise:dusk with weekday 0 (Sunday) to 6;\n" +
			"weekdays without a rule get no placeholder slots.",
		Example: "  studioctl tenant set-hours --tenant harbour-studio --rule 1:2:1 --rule 3:1:1",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rules, err := ParseRules(rawRules)
			if err != nil {
				return err
			}

			return withService(ctx, cmd, func(svc *service.Service) error {
				t, err := lookup(ctx, svc, tenantRef)
				if err != nil {
					return err
				}

				stored, err := svc.ReplaceBusinessHours(ctx, t.ID, rules)
				if err != nil {
					return describe(err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Business hours replaced for %s (%s):\n", t.Slug, t.ID)
				writeRules(cmd.OutOrStdout(), stored)
				return nil
			})
		},
	}

	c.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or slug")
	c.Flags().StringArrayVar(&rawRules, "rule", nil, "weekday:sunrise:dusk (repeatable)")
	_ = c.MarkFlagRequired("tenant")

	return c
}

func listCommand() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			return withService(ctx, cmd, func(svc *service.Service) error {
				res, err := svc.List(ctx, service.ListOptions{Page: page, PageSize: pageSize})
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSLUG\tNAME\tTIMEZONE\tLATITUDE\tLONGITUDE\tCREATED_AT")
				for _, t := range res.Tenants {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
						t.ID, t.Slug, t.DisplayName, t.Timezone, t.Latitude, t.Longitude, t.CreatedAt.Format(time.RFC3339))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d tenants)\n", res.Page, res.TotalPages, res.TotalItems)
				return nil
			})
		},
	}

	c.Flags().IntVar(&page, "page", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 20, "page size (max 100)")
	return c
}

// ParseRules converts weekday:sunrise:dusk triples into business-hours rules.
func ParseRules(raw []string) ([]service.BusinessHoursRule, error) {
	rules := make([]service.BusinessHoursRule, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(strings.TrimSpace(r), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid rule %q: want weekday:sunrise:dusk", r)
		}
		nums := make([]int, 3)
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid rule %q: %w", r, err)
			}
			nums[i] = n
		}
		rules = append(rules, service.BusinessHoursRule{
			Weekday:      time.Weekday(nums[0]),
			SunriseSlots: nums[1],
			DuskSlots:    nums[2],
		})
	}
	return rules, nil
}

func lookup(ctx context.Context, svc *service.Service, ref string) (service.Tenant, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return svc.Get(ctx, id)
	}
	return svc.GetBySlug(ctx, ref)
}

func writeRules(w io.Writer, rules []service.BusinessHoursRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEKDAY\tSUNRISE\tDUSK")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Weekday, r.SunriseSlots, r.DuskSlots)
	}
	_ = tw.Flush()
}

// describe flattens validation errors into a single CLI-friendly message.
func describe(err error) error {
	var vErr *service.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	msgs := make([]string, 0, len(vErr.Fields))
	for field, issues := range vErr.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, strings.Join(issues, "; ")))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, ", "))
}
