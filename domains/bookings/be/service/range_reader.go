package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/repo"
	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/visibility"
	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

// DefaultRangeTTL bounds how stale a cached range may be when invalidation is missed.
const DefaultRangeTTL = 30 * time.Second

// sharedReadTimeout bounds a range query shared by concurrent callers. The query is
// detached from any single caller, so one caller going away does not fail the others.
const sharedReadTimeout = 15 * time.Second

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange reads RFC 3339 bounds. Bare dates are accepted as UTC midnight.
func ParseRange(start, end string) (Range, error) {
	fieldErrors := FieldErrors{}

	s, err := parseBound(start)
	if err != nil {
		fieldErrors.add("start", err.Error())
	}
	e, err := parseBound(end)
	if err != nil {
		fieldErrors.add("end", err.Error())
	}
	if len(fieldErrors) > 0 {
		return Range{}, &ValidationError{Fields: fieldErrors}
	}

	r := Range{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate rejects empty and inverted ranges.
func (r Range) Validate() error {
	fieldErrors := FieldErrors{}
	if r.Start.IsZero() {
		fieldErrors.add("start", "start is required")
	}
	if r.End.IsZero() {
		fieldErrors.add("end", "end is required")
	}
	if len(fieldErrors) == 0 && !r.Start.Before(r.End) {
		fieldErrors.add("end", "end must be after start")
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func parseBound(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// RangeReader serves redacted booking ranges through a tenant-tagged cache.
// Entries are keyed by every dimension that changes the projection, so one
// viewer never receives another viewer's redaction.
type RangeReader struct {
	repo   repo.Repository
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewRangeReader constructs a reader. A nil cache reads through on every call.
func NewRangeReader(r repo.Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *RangeReader {
	if ttl <= 0 {
		ttl = DefaultRangeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RangeReader{repo: r, cache: c, ttl: ttl, logger: logger}
}

// RangeCacheKey returns bookings:range:<tenant>:<viewer scope key>:<start>:<end>.
func RangeCacheKey(scope tenant.Scope, v viewer.Viewer, r Range) string {
	return strings.Join([]string{
		"bookings:range",
		scope.TenantID.String(),
		v.ScopeKey(),
		r.Start.UTC().Format(time.RFC3339Nano),
		r.End.UTC().Format(time.RFC3339Nano),
	}, ":")
}

// Read returns every live booking overlapping r, redacted for v.
func (rr *RangeReader) Read(ctx context.Context, scope tenant.Scope, v viewer.Viewer, r Range) ([]visibility.Projection, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !scope.IsResolved() {
		return nil, persistence.ErrTenantScopeRequired
	}

	logger := platformlogging.FromContextOr(ctx, rr.logger)
	key := RangeCacheKey(scope, v, r)

	if rr.cache != nil {
		cached, hit, err := cache.GetJSON[[]visibility.Projection](ctx, rr.cache, key)
		switch {
		case err != nil:
			logger.Warn("read booking range cache", zap.String("key", key), zap.Error(err))
		case hit:
			return cached, nil
		}
	}

	ch := rr.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()

		details, err := rr.repo.ListInRange(ctx, scope, r.Start, r.End)
		if err != nil {
			return nil, err
		}
		out := make([]visibility.Projection, 0, len(details))
		for _, d := range details {
			out = append(out, visibility.Redact(v, FromDetail(d)))
		}

		if rr.cache != nil {
			if err := cache.SetJSON(ctx, rr.cache, key, out, rr.ttl, tenant.CacheTag(scope.TenantID)); err != nil {
				logger.Warn("write booking range cache", zap.String("key", key), zap.Error(err))
			}
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]visibility.Projection), nil
	}
}
