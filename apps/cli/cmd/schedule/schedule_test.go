package schedule

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	schedulerservice "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
)

type listerFunc func(ctx context.Context) ([]uuid.UUID, error)

func (f listerFunc) ListIDs(ctx context.Context) ([]uuid.UUID, error) { return f(ctx) }

func TestTargetIDs(t *testing.T) {
	id := uuid.New()
	unused := listerFunc(func(context.Context) ([]uuid.UUID, error) {
		t.Fatal("lister must not be called for a single tenant")
		return nil, nil
	})

	ids, err := targetIDs(context.Background(), unused, id.String())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, ids)

	_, err = targetIDs(context.Background(), unused, "nope")
	require.Error(t, err)

	all := []uuid.UUID{uuid.New(), uuid.New()}
	ids, err = targetIDs(context.Background(), listerFunc(func(context.Context) ([]uuid.UUID, error) {
		return all, nil
	}), "")
	require.NoError(t, err)
	require.Equal(t, all, ids)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	writeResults(&buf, []schedulerservice.Result{
		{TenantID: uuid.New(), From: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), Deleted: 4, Created: 10},
		{TenantID: uuid.New(), NoOp: true, Reason: "solar data unavailable"},
	})

	out := buf.String()
	require.Contains(t, out, "2026-03-01T13:00:00Z")
	require.Contains(t, out, "no-op: solar data unavailable")
}
