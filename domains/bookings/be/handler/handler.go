package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/service"
	"github.com/zenGate-Global/studio-scheduler/domains/bookings/be/visibility"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

type operation string

const (
	upsertOperation operation = "bookingsUpsert"
	deleteOperation operation = "bookingsDelete"
	getOperation    operation = "bookingsGet"
	rangeOperation  operation = "bookingsRange"
	countOperation  operation = "bookingsCountByStatus"
)

// Handler wires the bookings service to the HTTP contract in contracts/bookings.yaml.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("bookings service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the bookings endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/bookings", h.BookingsRange)
	r.Post("/bookings", h.BookingsCreate)
	r.Get("/bookings/counts", h.BookingsCountByStatus)
	r.Get("/bookings/{bookingId}", h.BookingsGet)
	r.Put("/bookings/{bookingId}", h.BookingsUpsert)
	r.Delete("/bookings/{bookingId}", h.BookingsDelete)
}

// Booking is the full projection as serialized on the wire.
type Booking struct {
	ID            uuid.UUID  `json:"id"`
	StartAt       time.Time  `json:"startAt"`
	EndAt         time.Time  `json:"endAt"`
	Status        string     `json:"status"`
	IsPlaceholder bool       `json:"isPlaceholder"`
	SlotType      *string    `json:"slotType,omitempty"`
	Title         string     `json:"title"`
	ClientID      *uuid.UUID `json:"clientId,omitempty"`
	ClientName    string     `json:"clientName,omitempty"`
	AgentID       *uuid.UUID `json:"agentId,omitempty"`
	AgentName     string     `json:"agentName,omitempty"`
	PropertyID    *uuid.UUID `json:"propertyId,omitempty"`
	PropertyName  string     `json:"propertyName,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Services      []string   `json:"services"`
	Crew          []Crew     `json:"crew"`
	Redaction     string     `json:"redaction"`
}

// Crew is an assigned crew member on the wire.
type Crew struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// BookingLite is the calendar-grid projection on the wire.
type BookingLite struct {
	ID            uuid.UUID `json:"id"`
	StartAt       time.Time `json:"startAt"`
	EndAt         time.Time `json:"endAt"`
	Status        string    `json:"status"`
	IsPlaceholder bool      `json:"isPlaceholder"`
	SlotType      *string   `json:"slotType,omitempty"`
	Title         string    `json:"title"`
	Redaction     string    `json:"redaction"`
}

// UpsertBooking is the request body of create and upsert.
type UpsertBooking struct {
	StartAt    time.Time   `json:"startAt"`
	EndAt      time.Time   `json:"endAt"`
	Status     string      `json:"status"`
	ClientID   *uuid.UUID  `json:"clientId"`
	AgentID    *uuid.UUID  `json:"agentId"`
	PropertyID *uuid.UUID  `json:"propertyId"`
	Title      string      `json:"title"`
	Notes      string      `json:"notes"`
	Services   []string    `json:"services"`
	CrewIDs    []uuid.UUID `json:"crewIds"`
}

type rangeResponse[T any] struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Items []T       `json:"items"`
}

type countsResponse struct {
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Counts map[string]int64 `json:"counts"`
}

func (h *Handler) BookingsRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, ok := h.viewerFrom(w, r)
	if !ok {
		return
	}

	rng, err := service.ParseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(ctx, w, err, rangeOperation)
		return
	}

	if r.URL.Query().Get("view") == "lite" {
		items, err := h.svc.ListRangeLite(ctx, v, rng)
		if err != nil {
			h.writeError(ctx, w, err, rangeOperation)
			return
		}
		out := make([]BookingLite, 0, len(items))
		for _, p := range items {
			out = append(out, toAPILite(p))
		}
		writeJSON(w, http.StatusOK, rangeResponse[BookingLite]{Start: rng.Start, End: rng.End, Items: out})
		return
	}

	items, err := h.svc.ListRange(ctx, v, rng)
	if err != nil {
		h.writeError(ctx, w, err, rangeOperation)
		return
	}
	out := make([]Booking, 0, len(items))
	for _, p := range items {
		out = append(out, toAPIBooking(p))
	}
	writeJSON(w, http.StatusOK, rangeResponse[Booking]{Start: rng.Start, End: rng.End, Items: out})
}

func (h *Handler) BookingsCountByStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, ok := h.viewerFrom(w, r)
	if !ok {
		return
	}

	rng, err := service.ParseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(ctx, w, err, countOperation)
		return
	}

	counts, err := h.svc.CountByStatus(ctx, v, rng)
	if err != nil {
		h.writeError(ctx, w, err, countOperation)
		return
	}
	writeJSON(w, http.StatusOK, countsResponse{Start: rng.Start, End: rng.End, Counts: counts})
}

func (h *Handler) BookingsGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, ok := h.viewerFrom(w, r)
	if !ok {
		return
	}
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(ctx, v, id)
	if err != nil {
		h.writeError(ctx, w, err, getOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPIBooking(p))
}

func (h *Handler) BookingsCreate(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, nil)
}

func (h *Handler) BookingsUpsert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	h.upsert(w, r, &id)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	ctx := r.Context()
	v, ok := h.viewerFrom(w, r)
	if !ok {
		return
	}

	var body UpsertBooking
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must be a booking object")
		return
	}

	p, err := h.svc.Upsert(ctx, v, service.UpsertInput{
		ID:         id,
		StartAt:    body.StartAt,
		EndAt:      body.EndAt,
		Status:     body.Status,
		ClientID:   body.ClientID,
		AgentID:    body.AgentID,
		PropertyID: body.PropertyID,
		Title:      body.Title,
		Notes:      body.Notes,
		Services:   body.Services,
		CrewIDs:    body.CrewIDs,
	})
	if err != nil {
		h.writeError(ctx, w, err, upsertOperation)
		return
	}

	if id == nil {
		w.Header().Set("Location", fmt.Sprintf("/api/v1/bookings/%s", p.ID))
		writeJSON(w, http.StatusCreated, toAPIBooking(p))
		return
	}
	writeJSON(w, http.StatusOK, toAPIBooking(p))
}

func (h *Handler) BookingsDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, ok := h.viewerFrom(w, r)
	if !ok {
		return
	}
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}

	if err := h.svc.SoftDelete(ctx, v, id); err != nil {
		h.writeError(ctx, w, err, deleteOperation)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) viewerFrom(w http.ResponseWriter, r *http.Request) (viewer.Viewer, bool) {
	v, ok := viewer.FromContext(r.Context())
	if !ok {
		problem.Unauthorized(w, "viewer context required")
		return viewer.Viewer{}, false
	}
	return v, true
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingId"))
	if err != nil {
		problem.BadRequest(w, "bookingId must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func toAPIBooking(p visibility.Projection) Booking {
	out := Booking{
		ID:            p.ID,
		StartAt:       p.StartAt,
		EndAt:         p.EndAt,
		Status:        p.Status,
		IsPlaceholder: p.IsPlaceholder,
		SlotType:      optional(p.SlotType),
		Title:         p.Title,
		ClientID:      p.ClientID,
		ClientName:    p.ClientName,
		AgentID:       p.AgentID,
		AgentName:     p.AgentName,
		PropertyID:    p.PropertyID,
		PropertyName:  p.PropertyName,
		Notes:         p.Notes,
		Services:      p.Services,
		Crew:          make([]Crew, 0, len(p.Crew)),
		Redaction:     string(p.Redaction),
	}
	if out.Services == nil {
		out.Services = []string{}
	}
	for _, c := range p.Crew {
		out.Crew = append(out.Crew, Crew{ID: c.ID, Name: c.Name})
	}
	return out
}

func toAPILite(p visibility.LiteProjection) BookingLite {
	return BookingLite{
		ID:            p.ID,
		StartAt:       p.StartAt,
		EndAt:         p.EndAt,
		Status:        p.Status,
		IsPlaceholder: p.IsPlaceholder,
		SlotType:      optional(p.SlotType),
		Title:         p.Title,
		Redaction:     string(p.Redaction),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
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
		logger.Error("bookings operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("booking not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("bookings request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	problem.Write(w, problem.New(status, title, detail, problemType, fields))
}

func (h *Handler) classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problem.TypeValidation,
			validationErr.Fields
	case persistence.IsAuthorizationError(err):
		return http.StatusForbidden,
			"Forbidden",
			err.Error(),
			problem.TypeForbidden,
			nil
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden,
			"Forbidden",
			"operation not permitted for viewer",
			problem.TypeForbidden,
			nil
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"booking not found",
			problem.TypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"booking id belongs to another tenant",
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
