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

	"github.com/zenGate-Global/studio-scheduler/domains/directory/be/service"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/problem"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

type operation string

const (
	createContactOperation  operation = "contactsCreate"
	listContactsOperation   operation = "contactsList"
	getContactOperation     operation = "contactsGet"
	createPropertyOperation operation = "propertiesCreate"
	listPropertiesOperation operation = "propertiesList"
)

var errForbidden = errors.New("operation not permitted for viewer")

// Handler wires the directory service to the HTTP contract in contracts/directory.yaml.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("directory service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the directory endpoints on r. Only studio staff manage the directory.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/contacts", h.ContactsList)
	r.Post("/contacts", h.ContactsCreate)
	r.Get("/contacts/{contactId}", h.ContactsGet)
	r.Get("/properties", h.PropertiesList)
	r.Post("/properties", h.PropertiesCreate)
}

// Contact is the wire representation of a contact.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	DisplayName string    `json:"displayName"`
	Email       *string   `json:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Property is the wire representation of a property.
type Property struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateContact is the request body of POST /contacts.
type CreateContact struct {
	Kind        string  `json:"kind"`
	DisplayName string  `json:"displayName"`
	Email       *string `json:"email"`
}

// CreateProperty is the request body of POST /properties.
type CreateProperty struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type contactList struct {
	Items      []Contact `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalItems int       `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}

type propertyList struct {
	Items []Property `json:"items"`
}

func (h *Handler) ContactsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireStaff(w, r, listContactsOperation) {
		return
	}

	opts := service.ListOptions{}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		opts.Kind = &kind
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil {
		opts.PageSize = size
	}

	result, err := h.svc.ListContacts(ctx, opts)
	if err != nil {
		h.writeError(ctx, w, err, listContactsOperation)
		return
	}

	items := make([]Contact, 0, len(result.Contacts))
	for _, c := range result.Contacts {
		items = append(items, toAPIContact(c))
	}
	writeJSON(w, http.StatusOK, contactList{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) ContactsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireStaff(w, r, createContactOperation) {
		return
	}

	var body CreateContact
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must be a contact object")
		return
	}

	created, err := h.svc.CreateContact(ctx, service.CreateContactInput{
		Kind:        body.Kind,
		DisplayName: body.DisplayName,
		Email:       body.Email,
	})
	if err != nil {
		h.writeError(ctx, w, err, createContactOperation)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/contacts/%s", created.ID))
	writeJSON(w, http.StatusCreated, toAPIContact(created))
}

func (h *Handler) ContactsGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireStaff(w, r, getContactOperation) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "contactId"))
	if err != nil {
		problem.BadRequest(w, "contactId must be a uuid")
		return
	}

	contact, err := h.svc.GetContact(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err, getContactOperation)
		return
	}
	writeJSON(w, http.StatusOK, toAPIContact(contact))
}

func (h *Handler) PropertiesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireStaff(w, r, listPropertiesOperation) {
		return
	}

	props, err := h.svc.ListProperties(ctx)
	if err != nil {
		h.writeError(ctx, w, err, listPropertiesOperation)
		return
	}

	out := propertyList{Items: make([]Property, 0, len(props))}
	for _, p := range props {
		out.Items = append(out.Items, toAPIProperty(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) PropertiesCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireStaff(w, r, createPropertyOperation) {
		return
	}

	var body CreateProperty
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.BadRequest(w, "request body must be a property object")
		return
	}

	created, err := h.svc.CreateProperty(ctx, service.CreatePropertyInput{Name: body.Name, Address: body.Address})
	if err != nil {
		h.writeError(ctx, w, err, createPropertyOperation)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIProperty(created))
}

func (h *Handler) requireStaff(w http.ResponseWriter, r *http.Request, op operation) bool {
	v, ok := viewer.FromContext(r.Context())
	if !ok {
		problem.Unauthorized(w, "viewer context required")
		return false
	}
	if !v.Elevated() && v.Role != viewer.RoleStaff {
		h.writeError(r.Context(), w, errForbidden, op)
		return false
	}
	return true
}

func toAPIContact(c service.Contact) Contact {
	return Contact{
		ID:          c.ID,
		Kind:        c.Kind,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toAPIProperty(p service.Property) Property {
	return Property{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
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
		logger.Error("directory operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("contact not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("directory request rejected", append(fieldsForLog, zap.Error(err))...)
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
	case errors.Is(err, errForbidden), persistence.IsAuthorizationError(err):
		return http.StatusForbidden,
			"Forbidden",
			err.Error(),
			problem.TypeForbidden,
			nil
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"contact not found",
			problem.TypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"a contact with this email already exists",
			problem.TypeConflict,
			nil
	case errors.Is(err, persistence.ErrTenantNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"tenant not found",
			problem.TypeNotFound,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problem.TypeInternal,
			nil
	}
}
