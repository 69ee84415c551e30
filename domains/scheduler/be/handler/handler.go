package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

const runOperation = "schedulerRun"

// Runner triggers a scheduler run for one tenant.
type Runner interface {
	Trigger(ctx context.Context, id uuid.UUID) (service.Result, error)
}

// Handler exposes the scheduler trigger to studio administrators.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(runner Runner, logger *zap.Logger) *Handler {
	if runner == nil {
		panic("scheduler runner is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{runner: runner, logger: logger}
}

// Routes mounts the scheduler endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/scheduler/run", h.SchedulerRun)
}

// RunResult is the wire representation of a run.
type RunResult struct {
	TenantID uuid.UUID `json:"tenantId"`
	From     time.Time `json:"from"`
	NoOp     bool      `json:"noOp"`
	Reason   string    `json:"reason,omitempty"`
	Deleted  int64     `json:"deleted"`
	Created  int64     `json:"created"`
}

// SchedulerRun implements POST /scheduler/run for the tenant of the request.
func (h *Handler) SchedulerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	v, ok := viewer.FromContext(ctx)
	if !ok {
		problem.Unauthorized(w, "viewer context required")
		return
	}
	if v.Role != viewer.RoleAdmin && !v.Has(viewer.CapabilityAdmin) {
		problem.Forbidden(w, "only studio administrators may run the scheduler")
		return
	}

	scope, ok := tenant.FromContext(ctx)
	if !ok || !scope.IsResolved() {
		problem.Forbidden(w, "a single tenant scope is required")
		return
	}

	res, err := h.runner.Trigger(ctx, scope.TenantID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RunResult{
		TenantID: res.TenantID,
		From:     res.From,
		NoOp:     res.NoOp,
		Reason:   res.Reason,
		Deleted:  res.Deleted,
		Created:  res.Created,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := platformlogging.FromContextOr(ctx, h.logger)

	switch {
	case errors.Is(err, service.ErrTenantNotFound):
		logger.Info("scheduler tenant not found", zap.String("operation", runOperation), zap.Error(err))
		problem.Write(w, problem.New(http.StatusNotFound, "Resource not found", "tenant not found", problem.TypeNotFound, nil))
	case persistence.IsAuthorizationError(err):
		logger.Warn("scheduler request rejected", zap.String("operation", runOperation), zap.Error(err))
		problem.Forbidden(w, err.Error())
	default:
		logger.Error("scheduler run failed", zap.String("operation", runOperation), zap.Error(err))
		problem.Write(w, problem.New(http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problem.TypeInternal, nil))
	}
}
