package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	"github.com/zenGate-Global/studio-scheduler/platform/go/clock"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/solar"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

// ErrTenantNotFound is returned when the tenant to schedule does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// sharedRunTimeout bounds a run shared by concurrent triggers. The run does not follow
// the cancellation of whichever trigger started it.
const sharedRunTimeout = 2 * time.Minute

// TenantConfig is what a run needs to know about a tenant.
type TenantConfig struct {
	ID        uuid.UUID
	Timezone  string
	Latitude  float64
	Longitude float64
	Rules     Rules
}

// Repository abstracts the tenant configuration and the placeholder rows.
type Repository interface {
	TenantConfig(ctx context.Context, id uuid.UUID) (TenantConfig, error)
	// ReplacePlaceholders deletes the tenant's placeholders starting at or after from,
	// or dated fromDate or later, and inserts slots, atomically and serialized per tenant.
	ReplacePlaceholders(ctx context.Context, id uuid.UUID, from, fromDate time.Time, slots []Slot) (deleted, created int64, err error)
}

// Result reports one tenant run.
type Result struct {
	TenantID uuid.UUID
	From     time.Time
	NoOp     bool
	Reason   string
	Deleted  int64
	Created  int64
}

// Service regenerates the placeholder horizon of tenants.
type Service struct {
	repo     Repository
	provider solar.Provider
	clock    clock.Clock
	cache    cache.Cache
	logger   *zap.Logger
	group    singleflight.Group
}

// New constructs a Service. A nil clock uses the system clock; a nil cache skips invalidation.
func New(repo Repository, provider solar.Provider, clk clock.Clock, c cache.Cache, logger *zap.Logger) *Service {
	if repo == nil {
		panic("scheduler repository is required")
	}
	if provider == nil {
		panic("solar provider is required")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, provider: provider, clock: clk, cache: c, logger: logger}
}

// Trigger runs the tenant, collapsing concurrent triggers for the same tenant into one run.
// A caller that gives up gets its context error; the run itself carries on for the others.
func (s *Service) Trigger(ctx context.Context, id uuid.UUID) (Result, error) {
	ch := s.group.DoChan(id.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRunTimeout)
		defer cancel()
		return s.Run(ctx, id)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			platformlogging.FromContextOr(ctx, s.logger).Debug("scheduler run shared",
				zap.String("tenant_id", id.String()),
			)
		}
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

// Run regenerates the placeholders of one tenant. A solar provider failure leaves
// existing placeholders untouched and reports a no-op result.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (Result, error) {
	logger := platformlogging.FromContextOr(ctx, s.logger).With(zap.String("tenant_id", id.String()))

	cfg, err := s.repo.TenantConfig(ctx, id)
	if err != nil {
		return Result{}, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Result{}, fmt.Errorf("tenant timezone %q: %w", cfg.Timezone, err)
	}

	today := clock.LocalMidnight(s.clock, loc)
	result := Result{TenantID: id, From: today.UTC()}

	window, err := s.provider.Fetch(ctx, cfg.Latitude, cfg.Longitude, today, today.AddDate(0, 0, FetchDays-1))
	if err == nil && window.Len() == 0 {
		err = fmt.Errorf("%w: empty window", solar.ErrUnavailable)
	}
	if err != nil {
		logger.Warn("solar data unavailable, placeholders left untouched", zap.Error(err))
		result.NoOp = true
		result.Reason = err.Error()
		return result, nil
	}

	slots := Plan(today, window, cfg.Rules)

	fromDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	deleted, created, err := s.repo.ReplacePlaceholders(ctx, id, today.UTC(), fromDate, slots)
	if err != nil {
		return Result{}, fmt.Errorf("replace placeholders: %w", err)
	}
	result.Deleted, result.Created = deleted, created

	s.invalidate(ctx, logger, id)

	logger.Info("placeholders regenerated",
		zap.Time("from", result.From),
		zap.Int("fetched_days", window.Len()),
		zap.Int64("deleted", deleted),
		zap.Int64("created", created),
	)
	return result, nil
}

// RunAll runs every tenant with at most parallelism concurrent runs.
// A failing tenant does not stop the others; failures are joined into the returned error.
func (s *Service) RunAll(ctx context.Context, ids []uuid.UUID, parallelism int) ([]Result, error) {
	if parallelism <= 0 {
		parallelism = 4
	}

	results := make([]Result, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.Trigger(ctx, id)
			if err != nil {
				errs[i] = fmt.Errorf("tenant %s: %w", id, err)
				res = Result{TenantID: id}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func (s *Service) invalidate(ctx context.Context, logger *zap.Logger, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTag(ctx, tenant.CacheTag(id)); err != nil {
		logger.Warn("invalidate booking cache", zap.Error(err))
	}
}
