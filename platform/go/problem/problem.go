// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"
)

const ContentType = "application/problem+json"

const (
	TypeValidation   = "https://studio.zengate.global/problems/validation-error"
	TypeUnauthorized = "https://studio.zengate.global/problems/unauthorized"
	TypeForbidden    = "https://studio.zengate.global/problems/forbidden"
	TypeNotFound     = "https://studio.zengate.global/problems/not-found"
	TypeConflict     = "https://studio.zengate.global/problems/conflict"
	TypeUnavailable  = "https://studio.zengate.global/problems/unavailable"
	TypeInternal     = "https://studio.zengate.global/problems/internal-error"
)

// Details is the problem+json body.
type Details struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// New builds a Details value; fields is copied so callers may keep mutating theirs.
func New(status int, title, detail, problemType string, fields map[string][]string) Details {
	d := Details{Type: problemType, Title: title, Status: status, Detail: detail}
	if len(fields) > 0 {
		d.Errors = make(map[string][]string, len(fields))
		for field, messages := range fields {
			d.Errors[field] = append([]string(nil), messages...)
		}
	}
	return d
}

// Write serializes d with its status code.
func Write(w http.ResponseWriter, d Details) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}

// BadRequest is a shortcut for malformed input that never reached a service.
func BadRequest(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusBadRequest, "Invalid request", detail, TypeValidation, nil))
}

// Unauthorized reports a missing or unusable identity.
func Unauthorized(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusUnauthorized, "Unauthorized", detail, TypeUnauthorized, nil))
}

// Forbidden reports an identity that may not perform the request.
func Forbidden(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusForbidden, "Forbidden", detail, TypeForbidden, nil))
}
