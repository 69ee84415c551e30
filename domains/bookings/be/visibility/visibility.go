// Package visibility decides which bookings a viewer owns and how every booking is masked for them.
package visibility

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

// Stored statuses.
const (
	StatusRequested = "REQUESTED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusBlocked   = "BLOCKED"
)

// Sentinels shown in place of masked data.
const (
	TitleLimitedAvailability = "Limited Availability"
	TitleTimeBlockOut        = "Time Block Out"
	PropertyUnavailable      = "Unavailable"
	PresentedBlocked         = "blocked"
	PresentedConfirmed       = "confirmed"
)

// RedactionLevel records which masking rule produced a projection.
type RedactionLevel string

const (
	RedactionNone    RedactionLevel = "none"
	RedactionPartial RedactionLevel = "partial"
	RedactionFull    RedactionLevel = "full"
)

// Crew is an assigned crew member with the joined display name.
type Crew struct {
	ID   uuid.UUID
	Name string
}

// Booking is the stored booking with its joined names, as read from the tenant's storage.
type Booking struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	Status        string
	IsPlaceholder bool
	SlotType      string
	ClientID      *uuid.UUID
	ClientName    string
	AgentID       *uuid.UUID
	AgentName     string
	PropertyID    *uuid.UUID
	PropertyName  string
	Title         string
	Notes         string
	Services      []string
	Crew          []Crew
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Projection is what a viewer is allowed to see of a Booking.
type Projection struct {
	ID            uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	Status        string
	IsPlaceholder bool
	SlotType      string
	Title         string
	ClientID      *uuid.UUID
	ClientName    string
	AgentID       *uuid.UUID
	AgentName     string
	PropertyID    *uuid.UUID
	PropertyName  string
	Notes         string
	Services      []string
	Crew          []Crew
	Redaction     RedactionLevel
}

// LiteProjection is the calendar-grid subset of a Projection.
type LiteProjection struct {
	ID            uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	Status        string
	IsPlaceholder bool
	SlotType      string
	Title         string
	Redaction     RedactionLevel
}

// Lite narrows an already redacted projection. It never looks at the stored booking,
// so the lite and full views cannot disagree on a masked field.
func (p Projection) Lite() LiteProjection {
	return LiteProjection{
		ID:            p.ID,
		StartAt:       p.StartAt,
		EndAt:         p.EndAt,
		Status:        p.Status,
		IsPlaceholder: p.IsPlaceholder,
		SlotType:      p.SlotType,
		Title:         p.Title,
		Redaction:     p.Redaction,
	}
}

// IsOwner reports whether v is entitled to the booking's details.
// Elevated viewers own everything; otherwise the viewer must be the booking's
// client, its agent, or one of its assigned crew.
func IsOwner(v viewer.Viewer, b Booking) bool {
	if v.Elevated() {
		return true
	}
	switch {
	case v.Role == viewer.RoleClient && sameID(v.ClientID, b.ClientID):
		return true
	case v.Role == viewer.RoleAgent && sameID(v.AgentID, b.AgentID):
		return true
	}
	if v.CrewMemberID != nil {
		for _, c := range b.Crew {
			if c.ID == *v.CrewMemberID {
				return true
			}
		}
	}
	return false
}

// IsVisible reports whether the booking's details are shown unmasked to v.
// Placeholders advertise open capacity and are visible to everyone.
func IsVisible(v viewer.Viewer, b Booking) bool {
	return b.IsPlaceholder || IsOwner(v, b)
}

// Redact applies the first matching masking rule. It never fails; missing joined
// names simply stay empty.
func Redact(v viewer.Viewer, b Booking) Projection {
	base := Projection{
		ID:            b.ID,
		StartAt:       b.StartAt,
		EndAt:         b.EndAt,
		IsPlaceholder: b.IsPlaceholder,
		SlotType:      b.SlotType,
	}

	if !IsVisible(v, b) {
		base.Title = TitleLimitedAvailability
		base.Status = PresentedBlocked
		base.Services = []string{}
		base.Crew = []Crew{}
		base.Redaction = RedactionFull
		return base
	}

	full := base
	full.Status = presentStatus(b.Status)
	full.Title = b.Title
	full.ClientID = b.ClientID
	full.ClientName = b.ClientName
	full.AgentID = b.AgentID
	full.AgentName = b.AgentName
	full.PropertyID = b.PropertyID
	full.PropertyName = b.PropertyName
	full.Notes = b.Notes
	full.Services = append([]string{}, b.Services...)
	full.Crew = append([]Crew{}, b.Crew...)
	full.Redaction = RedactionNone

	if (v.Role == viewer.RoleClient || v.Role == viewer.RoleAgent) && strings.EqualFold(b.Status, StatusBlocked) && IsOwner(v, b) {
		full.Title = TitleTimeBlockOut
		full.PropertyID = nil
		full.PropertyName = PropertyUnavailable
		full.Notes = ""
		full.Redaction = RedactionPartial
	}

	return full
}

// RedactAll projects every booking for v, preserving order.
func RedactAll(v viewer.Viewer, bookings []Booking) []Projection {
	out := make([]Projection, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, Redact(v, b))
	}
	return out
}

func presentStatus(stored string) string {
	if strings.EqualFold(stored, StatusApproved) {
		return PresentedConfirmed
	}
	return strings.ToLower(stored)
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
