package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/repo"
	"github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	"github.com/zenGate-Global/studio-scheduler/platform/go/clock"
	"github.com/zenGate-Global/studio-scheduler/platform/go/solar"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

type providerFunc func(ctx context.Context, lat, lon float64, start, end time.Time) (solar.Window, error)

func (f providerFunc) Fetch(ctx context.Context, lat, lon float64, start, end time.Time) (solar.Window, error) {
	return f(ctx, lat, lon, start, end)
}

type recordingCache struct {
	cache.Cache
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) InvalidateTag(ctx context.Context, tag string) error {
	c.mu.Lock()
	c.invalidated = append(c.invalidated, tag)
	c.mu.Unlock()
	return c.Cache.InvalidateTag(ctx, tag)
}

var (
	acme = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")
	beta = uuid.MustParse("bbbbbbbb-0000-4000-8000-000000000002")
	// 2026-03-02 09:00 UTC is a Monday morning in London.
	now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func validProvider(calls *atomic.Int32) providerFunc {
	return func(_ context.Context, _, _ float64, start, end time.Time) (solar.Window, error) {
		if calls != nil {
			calls.Add(1)
		}
		w := solar.Window{}
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
			w.Days = append(w.Days, solar.Day{
				Date:    day.Format(solar.DateLayout),
				Sunrise: base.Add(6*time.Hour + 40*time.Minute),
				Sunset:  base.Add(17*time.Hour + 50*time.Minute),
			})
		}
		return w, nil
	}
}

func newRepo(ids ...uuid.UUID) *repo.MemoryRepository {
	r := repo.NewMemoryRepository()
	for _, id := range ids {
		r.PutTenant(service.TenantConfig{
			ID:        id,
			Timezone:  "Europe/London",
			Latitude:  51.5,
			Longitude: -0.12,
			Rules:     service.Rules{time.Monday: {Sunrise: 1, Dusk: 1}},
		})
	}
	return r
}

func multiset(slots []service.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, fmt.Sprintf("%s/%s", s.Date.Format(solar.DateLayout), s.Type))
	}
	sort.Strings(out)
	return out
}

func TestRunMondayScenario(t *testing.T) {
	r := newRepo(acme)
	c := &recordingCache{Cache: cache.NewMemory(nil)}
	svc := service.New(r, validProvider(nil), clock.NewFixed(now), c, zaptest.NewLogger(t))

	res, err := svc.Run(context.Background(), acme)
	require.NoError(t, err)
	require.False(t, res.NoOp)
	require.EqualValues(t, 10, res.Created)
	require.EqualValues(t, 0, res.Deleted)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), res.From)
	require.Equal(t, []string{tenant.CacheTag(acme)}, c.invalidated)
}

func TestRunRequestsFourteenLocalDays(t *testing.T) {
	r := newRepo(acme)
	var gotStart, gotEnd time.Time
	provider := providerFunc(func(ctx context.Context, lat, lon float64, start, end time.Time) (solar.Window, error) {
		gotStart, gotEnd = start, end
		require.InDelta(t, 51.5, lat, 1e-9)
		return validProvider(nil)(ctx, lat, lon, start, end)
	})

	_, err := service.New(r, provider, clock.NewFixed(now), nil, zaptest.NewLogger(t)).Run(context.Background(), acme)
	require.NoError(t, err)
	require.Equal(t, "Europe/London", gotStart.Location().String())
	require.Equal(t, "2026-03-02", gotStart.Format(solar.DateLayout))
	require.Equal(t, "2026-03-15", gotEnd.Format(solar.DateLayout))
}

func TestRunIsNoOpWhenProviderFails(t *testing.T) {
	for name, provider := range map[string]providerFunc{
		"error": func(context.Context, float64, float64, time.Time, time.Time) (solar.Window, error) {
			return solar.Window{}, fmt.Errorf("%w: unexpected status 502", solar.ErrUnavailable)
		},
		"empty window": func(context.Context, float64, float64, time.Time, time.Time) (solar.Window, error) {
			return solar.Window{}, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			r := newRepo(acme)
			existing := service.Slot{Type: service.SlotSunrise, StartAt: now.Add(24 * time.Hour), EndAt: now.Add(25 * time.Hour)}
			r.Seed(acme, existing)
			c := &recordingCache{Cache: cache.NewMemory(nil)}

			res, err := service.New(r, provider, clock.NewFixed(now), c, zaptest.NewLogger(t)).Run(context.Background(), acme)
			require.NoError(t, err)
			require.True(t, res.NoOp)
			require.NotEmpty(t, res.Reason)
			require.Zero(t, r.Replaces())
			require.Equal(t, []service.Slot{existing}, r.Placeholders(acme))
			require.Empty(t, c.invalidated)
		})
	}
}

func TestRunConservesPlaceholders(t *testing.T) {
	r := newRepo(acme)
	svc := service.New(r, validProvider(nil), clock.NewFixed(now), nil, zaptest.NewLogger(t))

	_, err := svc.Run(context.Background(), acme)
	require.NoError(t, err)
	first := multiset(r.Placeholders(acme))

	res, err := svc.Run(context.Background(), acme)
	require.NoError(t, err)
	require.EqualValues(t, 10, res.Deleted)
	require.EqualValues(t, 10, res.Created)
	require.Equal(t, first, multiset(r.Placeholders(acme)))
}

func TestRunKeepsHistoricalPlaceholders(t *testing.T) {
	r := newRepo(acme)
	yesterday := service.Slot{
		Type:    service.SlotDusk,
		Date:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		StartAt: time.Date(2026, 3, 1, 17, 20, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 1, 18, 20, 0, 0, time.UTC),
	}
	r.Seed(acme, yesterday)

	res, err := service.New(r, validProvider(nil), clock.NewFixed(now), nil, zaptest.NewLogger(t)).Run(context.Background(), acme)
	require.NoError(t, err)
	require.Zero(t, res.Deleted)
	require.Contains(t, r.Placeholders(acme), yesterday)
	require.Len(t, r.Placeholders(acme), 11)
}

func TestRunReplacesSlotsStartingBeforeTheirDate(t *testing.T) {
	r := newRepo(acme)
	// A sunrise shortly after midnight starts the slot on the previous calendar day.
	early := service.Slot{
		Type:    service.SlotSunrise,
		Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartAt: time.Date(2026, 3, 1, 23, 40, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 3, 2, 0, 40, 0, 0, time.UTC),
	}
	r.Seed(acme, early)

	res, err := service.New(r, validProvider(nil), clock.NewFixed(now), nil, zaptest.NewLogger(t)).Run(context.Background(), acme)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Deleted)
	require.NotContains(t, r.Placeholders(acme), early)
	require.Len(t, r.Placeholders(acme), 10)
}

func TestRunUnknownTenant(t *testing.T) {
	svc := service.New(newRepo(), validProvider(nil), clock.NewFixed(now), nil, zaptest.NewLogger(t))
	_, err := svc.Run(context.Background(), acme)
	require.ErrorIs(t, err, service.ErrTenantNotFound)
}

func TestTriggerCollapsesConcurrentRuns(t *testing.T) {
	r := newRepo(acme)
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	provider := providerFunc(func(ctx context.Context, lat, lon float64, start, end time.Time) (solar.Window, error) {
		once.Do(func() { close(entered) })
		<-release
		return validProvider(&calls)(ctx, lat, lon, start, end)
	})
	svc := service.New(r, provider, clock.NewFixed(now), nil, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	results := make([]service.Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Trigger(context.Background(), acme)
		}()
		if i == 0 {
			<-entered
		}
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errors.Join(errs...))
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, r.Replaces())
	require.Equal(t, results[0], results[1])
}

func TestTriggerSurvivesCancelledLeader(t *testing.T) {
	r := newRepo(acme)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	provider := providerFunc(func(ctx context.Context, lat, lon float64, start, end time.Time) (solar.Window, error) {
		once.Do(func() { close(entered) })
		select {
		case <-ctx.Done():
			return solar.Window{}, ctx.Err()
		case <-release:
		}
		return validProvider(nil)(ctx, lat, lon, start, end)
	})
	svc := service.New(r, provider, clock.NewFixed(now), nil, zaptest.NewLogger(t))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Trigger(leaderCtx, acme)
		leaderErr <- err
	}()
	<-entered

	type outcome struct {
		res service.Result
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := svc.Trigger(context.Background(), acme)
		follower <- outcome{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	require.False(t, got.res.NoOp)
	require.EqualValues(t, 10, got.res.Created)
	require.Equal(t, 1, r.Replaces())
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	r := newRepo(acme, beta)
	missing := uuid.New()
	svc := service.New(r, validProvider(nil), clock.NewFixed(now), nil, zaptest.NewLogger(t))

	results, err := svc.RunAll(context.Background(), []uuid.UUID{acme, missing, beta}, 2)
	require.Error(t, err)
	require.True(t, errors.Is(err, service.ErrTenantNotFound))
	require.Contains(t, err.Error(), missing.String())

	require.Len(t, results, 3)
	require.EqualValues(t, 10, results[0].Created)
	require.Equal(t, missing, results[1].TenantID)
	require.EqualValues(t, 10, results[2].Created)
}
