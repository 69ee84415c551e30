package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

type operation string

const (
	listOperation         operation = "tenantsList"
	createOperation       operation = "tenantsCreate"
	getOperation          operation = "tenantsGet"
	updateOperation       operation = "tenantsUpdate"
	currentOperation      operation = "tenantCurrent"
	getHoursOperation     operation = "tenantBusinessHoursGet"
	replaceHoursOperation operation = "tenantBusinessHoursReplace"
)

var errForbidden = errors.New("operation not permitted for viewer")

// Handler wires tenants service to the HTTP contract in contracts/tenants.yaml.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the registry endpoints (platform operators) and the current-tenant endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/admin/tenants", h.TenantsList)
	r.Post("/admin/tenants", h.TenantsCreate)
	r.Get("/admin/tenants/{tenantId}", h.TenantsGet)
	r.Patch("/admin/tenants/{tenantId}", h.TenantsUpdate)

	r.Get("/tenant", h.TenantCurrent)
	r.Get("/tenant/business-hours", h.BusinessHoursGet)
	r.Put("/tenant/business-hours", h.BusinessHoursReplace)
}

// Tenant is the wire representation of a tenant.
type Tenant struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"displayName"`
	Timezone    string    `json:"timezone"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTenant is the request body of POST /admin/tenants.
type CreateTenant struct {
	ID          *uuid.UUID `json:"id"`
	Slug        string     `json:"slug"`
	DisplayName string     `json:"displayName"`
	Timezone    string     `json:"timezone"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
}

// UpdateTenant is the request body of PATCH /admin/tenants/{tenantId}.
type UpdateTenant struct {
	DisplayName *string  `json:"displayName"`
	Timezone    *string  `json:"timezone"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// BusinessHoursRule is the wire representation of one weekday rule.
type BusinessHoursRule struct {
	Weekday      int `json:"weekday"`
	SunriseSlots int `json:"sunriseSlots"`
	DuskSlots    int `json:"duskSlots"`
}

type businessHours struct {
	Rules []BusinessHoursRule `json:"rules"`
}

type tenantList struct {
	Items      []Tenant `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}

// TenantsList implements GET /admin/tenants
func (h *Handler) TenantsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOperator(w, r, listOperation) {
		return
	}

	opts := service.ListOptions{
		Page:     intQuery(r, "page"),
		PageSize: intQuery(r, "pageSize"),
	}
	result, err := h.svc.List(ctx, opts)
	if err != nil {
		h.writeError(ctx, w, err, listOperation)
		return
	}

	items := make([]Tenant, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toAPITenant(t))
	}
	writeJSON(w, http.StatusOK, tenantList{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// TenantsCreate implements POST /admin/tenants
func (h *Handler) TenantsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOperator(w, r, createOperation) {
		return
	}

	var body CreateTenant
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must be a tenant object")
		return
	}

	created, err := h.svc.Create(ctx, service.CreateInput{
		ID:          body.ID,
		Slug:        body.Slug,
		DisplayName: body.DisplayName,
		Timezone:    body.Timezone,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
	})
	if err != nil {
		h.writeError(ctx, w, err, createOperation)
		return
	}

	platformlogging.FromContextOr(ctx, h.logger).Info("tenant created",
		zap.String("tenant_id", created.ID.String()),
		zap.String("slug", created.Slug),
	)
	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/tenants/%s", created.ID))
	writeJSON(w, http.StatusCreated, toAPITenant(created))
}

// TenantsGet implements GET /admin/tenants/{tenantId}
func (h *Handler) TenantsGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOperator(w, r, getOperation) {
		return
	}
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err, getOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPITenant(t))
}

// TenantsUpdate implements PATCH /admin/tenants/{tenantId}
func (h *Handler) TenantsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireOperator(w, r, updateOperation) {
		return
	}
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	var body UpdateTenant
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must be a tenant patch object")
		return
	}

	updated, err := h.svc.Update(ctx, id, service.UpdateInput{
		DisplayName: body.DisplayName,
		Timezone:    body.Timezone,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
	})
	if err != nil {
		h.writeError(ctx, w, err, updateOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPITenant(updated))
}

// TenantCurrent implements GET /tenant
func (h *Handler) TenantCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := currentScope(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(ctx, scope.TenantID)
	if err != nil {
		h.writeError(ctx, w, err, currentOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPITenant(t))
}

// BusinessHoursGet implements GET /tenant/business-hours
func (h *Handler) BusinessHoursGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := currentScope(w, r)
	if !ok {
		return
	}
	v, _ := viewer.FromContext(ctx)
	if !v.Elevated() && v.Role != viewer.RoleStaff {
		h.writeError(ctx, w, errForbidden, getHoursOperation)
		return
	}

	rules, err := h.svc.BusinessHours(ctx, scope.TenantID)
	if err != nil {
		h.writeError(ctx, w, err, getHoursOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPIHours(rules))
}

// BusinessHoursReplace implements PUT /tenant/business-hours
func (h *Handler) BusinessHoursReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := currentScope(w, r)
	if !ok {
		return
	}
	v, _ := viewer.FromContext(ctx)
	if !isStudioAdmin(v) {
		h.writeError(ctx, w, errForbidden, replaceHoursOperation)
		return
	}

	var body businessHours
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must contain a rules array")
		return
	}

	rules := make([]service.BusinessHoursRule, 0, len(body.Rules))
	for _, rule := range body.Rules {
		rules = append(rules, service.BusinessHoursRule{
			Weekday:      time.Weekday(rule.Weekday),
			SunriseSlots: rule.SunriseSlots,
			DuskSlots:    rule.DuskSlots,
		})
	}

	stored, err := h.svc.ReplaceBusinessHours(ctx, scope.TenantID, rules)
	if err != nil {
		h.writeError(ctx, w, err, replaceHoursOperation)
		return
	}

	platformlogging.FromContextOr(ctx, h.logger).Info("business hours replaced",
		zap.Int("rules", len(stored)),
	)
	writeJSON(w, http.StatusOK, toAPIHours(stored))
}

func (h *Handler) requireOperator(w http.ResponseWriter, r *http.Request, op operation) bool {
	v, ok := viewer.FromContext(r.Context())
	if !ok {
		problem.Unauthorized(w, "viewer context required")
		return false
	}
	if !v.Has(viewer.CapabilityCrossTenant) {
		h.writeError(r.Context(), w, errForbidden, op)
		return false
	}
	return true
}

func isStudioAdmin(v viewer.Viewer) bool {
	return v.Role == viewer.RoleAdmin || v.Has(viewer.CapabilityAdmin)
}

func currentScope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	if _, ok := viewer.FromContext(r.Context()); !ok {
		problem.Unauthorized(w, "viewer context required")
		return tenant.Scope{}, false
	}
	scope, ok := tenant.FromContext(r.Context())
	if !ok || !scope.IsResolved() {
		problem.Forbidden(w, "a single tenant scope is required")
		return tenant.Scope{}, false
	}
	return scope, true
}

func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		problem.BadRequest(w, "tenantId must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func toAPITenant(t service.Tenant) Tenant {
	return Tenant{
		ID:          t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Timezone:    t.Timezone,
		Latitude:    t.Latitude,
		Longitude:   t.Longitude,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toAPIHours(rules []service.BusinessHoursRule) businessHours {
	out := businessHours{Rules: make([]BusinessHoursRule, 0, len(rules))}
	for _, r := range rules {
		out.Rules = append(out.Rules, BusinessHoursRule{
			Weekday:      int(r.Weekday),
			SunriseSlots: r.SunriseSlots,
			DuskSlots:    r.DuskSlots,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, title, detail, problemType, fields := h.classifyError(err)

	logger := platformlogging.FromContextOr(ctx, h.logger)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("tenants operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("tenant not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("tenants request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	problem.Write(w, problem.New(status, title, detail, problemType, fields))
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors map[string][]string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problem.TypeValidation,
			validationErr.Fields
	case errors.Is(err, errForbidden), persistence.IsAuthorizationError(err):
		return http.StatusForbidden,
			"Forbidden",
			err.Error(),
			problem.TypeForbidden,
			nil
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"tenant not found",
			problem.TypeNotFound,
			nil
	case errors.Is(err, service.ErrConflictSlug):
		return http.StatusConflict,
			"Conflict",
			"tenant slug already exists",
			problem.TypeConflict,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problem.TypeInternal,
			nil
	}
}
