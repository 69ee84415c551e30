package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/studio-scheduler/platform/go/tenant"
)

const bookingColumns = `booking_id, tenant_id, start_at, end_at, status, is_placeholder, slot_type, slot_date,
        slot_ordinal, client_id, agent_id, property_id, title, notes, services, created_by, updated_by,
        created_at, updated_at, deleted_at`

// BookingRecord is a row of the bookings table.
type BookingRecord struct {
	BookingID     uuid.UUID
	TenantID      uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	Status        string
	IsPlaceholder bool
	SlotType      *string
	SlotDate      *time.Time
	SlotOrdinal   *int
	ClientID      *uuid.UUID
	AgentID       *uuid.UUID
	PropertyID    *uuid.UUID
	Title         string
	Notes         string
	Services      []string
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// CrewAssignment is a crew member attached to a booking, with the joined name.
type CrewAssignment struct {
	CrewMemberID uuid.UUID
	Name         string
}

// BookingDetail is a booking with its joined names and crew assignments.
// Missing joins leave the names empty.
type BookingDetail struct {
	BookingRecord
	ClientName   string
	AgentName    string
	PropertyName string
	Assignments  []CrewAssignment
}

// PlaceholderRecord is one generated capacity slot.
type PlaceholderRecord struct {
	BookingID   uuid.UUID
	StartAt     time.Time
	EndAt       time.Time
	SlotType    string
	SlotDate    time.Time
	SlotOrdinal int
	Title       string
}

// UpsertBookingParams carries a real (non-placeholder) booking write.
type UpsertBookingParams struct {
	BookingID  uuid.UUID
	StartAt    time.Time
	EndAt      time.Time
	Status     string
	ClientID   *uuid.UUID
	AgentID    *uuid.UUID
	PropertyID *uuid.UUID
	Title      string
	Notes      string
	Services   []string
	CrewIDs    []uuid.UUID
	Actor      string
}

// BookingStore persists bookings and their assignments through the ScopeGuard.
type BookingStore struct {
	db Database
}

// NewBookingStore returns a store bound to db.
func NewBookingStore(db Database) (*BookingStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &BookingStore{db: db}, nil
}

// Upsert updates the booking when it exists in the scoped tenant and inserts it otherwise.
// Writes are last-write-wins. Updating a placeholder converts it into a real booking.
// A soft-deleted id is never revived; writing to it reports ErrBookingConflict.
func (s *BookingStore) Upsert(ctx context.Context, scope tenant.Scope, params UpsertBookingParams) (BookingDetail, error) {
	if scope.IsCrossTenant() {
		return BookingDetail{}, ErrTenantScopeRequired
	}
	if params.BookingID == uuid.Nil {
		params.BookingID = uuid.New()
	}
	services := params.Services
	if services == nil {
		services = []string{}
	}

	var detail BookingDetail
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		guard := NewScopeGuard(tx)
		bookings, err := guard.Table(scope, KindBookings)
		if err != nil {
			return err
		}

		row, err := bookings.UpdateReturning(ctx,
			Where().Eq("booking_id", params.BookingID).IsNull("deleted_at"),
			Assignments{
				"start_at":       params.StartAt,
				"end_at":         params.EndAt,
				"status":         params.Status,
				"is_placeholder": false,
				"slot_type":      nil,
				"slot_date":      nil,
				"slot_ordinal":   nil,
				"client_id":      params.ClientID,
				"agent_id":       params.AgentID,
				"property_id":    params.PropertyID,
				"title":          params.Title,
				"notes":          params.Notes,
				"services":       services,
				"updated_by":     params.Actor,
				"updated_at":     time.Now().UTC(),
			},
			bookingColumns,
		)
		if err != nil {
			return err
		}

		rec, err := scanBooking(row)
		if errors.Is(err, pgx.ErrNoRows) {
			row, err = bookings.Insert(ctx, Payload{Values: map[string]any{
				"booking_id":     params.BookingID,
				"start_at":       params.StartAt,
				"end_at":         params.EndAt,
				"status":         params.Status,
				"is_placeholder": false,
				"client_id":      params.ClientID,
				"agent_id":       params.AgentID,
				"property_id":    params.PropertyID,
				"title":          params.Title,
				"notes":          params.Notes,
				"services":       services,
				"created_by":     params.Actor,
				"updated_by":     params.Actor,
			}}, bookingColumns)
			if err != nil {
				return err
			}
			rec, err = scanBooking(row)
			if isUniqueViolation(err) {
				return ErrBookingConflict
			}
			err = mapInsertError(err)
		}
		if err != nil {
			return fmt.Errorf("upsert booking: %w", err)
		}

		if err := replaceAssignments(ctx, guard, scope, rec.BookingID, params.CrewIDs); err != nil {
			return err
		}

		details, err := hydrate(ctx, guard, scope, []BookingRecord{rec})
		if err != nil {
			return err
		}
		detail = details[0]
		return nil
	})
	if err != nil {
		return BookingDetail{}, err
	}

	return detail, nil
}

func replaceAssignments(ctx context.Context, guard *ScopeGuard, scope tenant.Scope, bookingID uuid.UUID, crew []uuid.UUID) error {
	table, err := guard.Table(scope, KindAssignments)
	if err != nil {
		return err
	}
	if _, err := table.Delete(ctx, Where().Eq("booking_id", bookingID)); err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(crew))
	rows := make([][]any, 0, len(crew))
	for _, id := range crew {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, []any{bookingID, id})
	}
	if _, err := table.InsertMany(ctx, []string{"booking_id", "crew_member_id"}, rows); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

// SoftDelete cancels a live booking and stamps deleted_at.
func (s *BookingStore) SoftDelete(ctx context.Context, scope tenant.Scope, id uuid.UUID, actor string) error {
	if scope.IsCrossTenant() {
		return ErrTenantScopeRequired
	}
	table, err := NewScopeGuard(s.db).Table(scope, KindBookings)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	n, err := table.Update(ctx,
		Where().Eq("booking_id", id).IsNull("deleted_at"),
		Assignments{"status": "CANCELLED", "deleted_at": now, "updated_at": now, "updated_by": actor},
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Get returns one live booking of the scoped tenant. Soft-deleted bookings are not found.
func (s *BookingStore) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (BookingDetail, error) {
	guard := NewScopeGuard(s.db)
	table, err := guard.Table(scope, KindBookings)
	if err != nil {
		return BookingDetail{}, err
	}

	rows, err := table.Select(ctx, bookingColumns, Where().Eq("booking_id", id).IsNull("deleted_at"), "LIMIT 1")
	if err != nil {
		return BookingDetail{}, fmt.Errorf("select booking: %w", err)
	}
	records, err := collectBookings(rows)
	if err != nil {
		return BookingDetail{}, err
	}
	if len(records) == 0 {
		return BookingDetail{}, ErrBookingNotFound
	}

	// Joined rows must come from the booking's own tenant.
	joinScope := scope
	if scope.IsCrossTenant() {
		joinScope = tenant.ForTenant(records[0].TenantID)
	}
	details, err := hydrate(ctx, guard, joinScope, records)
	if err != nil {
		return BookingDetail{}, err
	}
	return details[0], nil
}

// ListInRange returns live bookings overlapping the half-open window [start, end).
func (s *BookingStore) ListInRange(ctx context.Context, scope tenant.Scope, start, end time.Time) ([]BookingDetail, error) {
	if scope.IsCrossTenant() {
		return nil, ErrTenantScopeRequired
	}
	guard := NewScopeGuard(s.db)
	table, err := guard.Table(scope, KindBookings)
	if err != nil {
		return nil, err
	}

	rows, err := table.Select(ctx, bookingColumns,
		Where().Lt("start_at", end).Gt("end_at", start).IsNull("deleted_at"),
		"ORDER BY start_at, booking_id",
	)
	if err != nil {
		return nil, fmt.Errorf("select bookings in range: %w", err)
	}
	records, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	return hydrate(ctx, guard, scope, records)
}

// CountByStatus aggregates live bookings overlapping [start, end) per stored status.
// A cross-tenant scope aggregates over every tenant.
func (s *BookingStore) CountByStatus(ctx context.Context, scope tenant.Scope, start, end time.Time) (map[string]int64, error) {
	table, err := NewScopeGuard(s.db).Table(scope, KindBookings)
	if err != nil {
		return nil, err
	}

	rows, err := table.Select(ctx, "status, COUNT(*)",
		Where().Lt("start_at", end).Gt("end_at", start).IsNull("deleted_at"),
		"GROUP BY status",
	)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ReplacePlaceholders deletes the tenant's placeholders starting at or after from, or
// dated fromDate or later, and inserts the given ones, all in one transaction. A slot
// may start before the midnight of its own date, so both bounds are needed to clear
// every slot the caller is about to re-plan. A transaction-scoped advisory lock keyed
// by the tenant serializes concurrent runs across processes.
func (s *BookingStore) ReplacePlaceholders(ctx context.Context, scope tenant.Scope, from, fromDate time.Time, slots []PlaceholderRecord) (deleted, created int64, err error) {
	if !scope.IsResolved() {
		return 0, 0, ErrTenantScopeRequired
	}

	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "placeholders:"+scope.TenantID.String()); err != nil {
			return fmt.Errorf("acquire placeholder lock: %w", err)
		}

		table, err := NewScopeGuard(tx).Table(scope, KindBookings)
		if err != nil {
			return err
		}

		deleted, err = table.Delete(ctx, Where().Eq("is_placeholder", true).Ge("start_at", from))
		if err != nil {
			return err
		}
		early, err := table.Delete(ctx, Where().Eq("is_placeholder", true).Ge("slot_date", fromDate))
		if err != nil {
			return err
		}
		deleted += early

		rows := make([][]any, 0, len(slots))
		for _, p := range slots {
			id := p.BookingID
			if id == uuid.Nil {
				id = uuid.New()
			}
			rows = append(rows, []any{
				id, p.StartAt, p.EndAt, "REQUESTED", true, p.SlotType, p.SlotDate, int32(p.SlotOrdinal),
				p.Title, []string{}, "system", "system",
			})
		}
		created, err = table.InsertMany(ctx, []string{
			"booking_id", "start_at", "end_at", "status", "is_placeholder", "slot_type", "slot_date", "slot_ordinal",
			"title", "services", "created_by", "updated_by",
		}, rows)
		return mapInsertError(err)
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, created, nil
}

// hydrate joins crew assignments and directory names onto the records.
// Every lookup goes through the guard so joined rows cannot leak across tenants.
func hydrate(ctx context.Context, guard *ScopeGuard, scope tenant.Scope, records []BookingRecord) ([]BookingDetail, error) {
	details := make([]BookingDetail, len(records))
	if len(records) == 0 {
		return details, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	contactIDs := make([]uuid.UUID, 0)
	propertyIDs := make([]uuid.UUID, 0)
	for i, rec := range records {
		details[i] = BookingDetail{BookingRecord: rec}
		ids = append(ids, rec.BookingID)
		if rec.ClientID != nil {
			contactIDs = append(contactIDs, *rec.ClientID)
		}
		if rec.AgentID != nil {
			contactIDs = append(contactIDs, *rec.AgentID)
		}
		if rec.PropertyID != nil {
			propertyIDs = append(propertyIDs, *rec.PropertyID)
		}
	}

	assignments, err := guard.Table(scope, KindAssignments)
	if err != nil {
		return nil, err
	}
	rows, err := assignments.Select(ctx, "booking_id, crew_member_id", Where().In("booking_id", ids), "ORDER BY booking_id, crew_member_id")
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	crewByBooking := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var bookingID, crewID uuid.UUID
		if err := rows.Scan(&bookingID, &crewID); err != nil {
			rows.Close()
			return nil, err
		}
		crewByBooking[bookingID] = append(crewByBooking[bookingID], crewID)
		contactIDs = append(contactIDs, crewID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	contactNames, err := lookupNames(ctx, guard, scope, KindContacts, "contact_id", "display_name", contactIDs)
	if err != nil {
		return nil, err
	}
	propertyNames, err := lookupNames(ctx, guard, scope, KindProperties, "property_id", "name", propertyIDs)
	if err != nil {
		return nil, err
	}

	for i := range details {
		d := &details[i]
		if d.ClientID != nil {
			d.ClientName = contactNames[*d.ClientID]
		}
		if d.AgentID != nil {
			d.AgentName = contactNames[*d.AgentID]
		}
		if d.PropertyID != nil {
			d.PropertyName = propertyNames[*d.PropertyID]
		}
		for _, crewID := range crewByBooking[d.BookingID] {
			d.Assignments = append(d.Assignments, CrewAssignment{CrewMemberID: crewID, Name: contactNames[crewID]})
		}
	}

	return details, nil
}

func lookupNames(ctx context.Context, guard *ScopeGuard, scope tenant.Scope, kind Kind, idColumn, nameColumn string, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	table, err := guard.Table(scope, kind)
	if err != nil {
		return nil, err
	}
	rows, err := table.Select(ctx, idColumn+", "+nameColumn, Where().In(idColumn, ids), "")
	if err != nil {
		return nil, fmt.Errorf("select %s names: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

func collectBookings(rows pgx.Rows) ([]BookingRecord, error) {
	defer rows.Close()

	records := make([]BookingRecord, 0)
	for rows.Next() {
		rec, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return records, nil
}

func scanBooking(row pgx.Row) (BookingRecord, error) {
	var rec BookingRecord
	err := row.Scan(
		&rec.BookingID, &rec.TenantID, &rec.StartAt, &rec.EndAt, &rec.Status, &rec.IsPlaceholder,
		&rec.SlotType, &rec.SlotDate, &rec.SlotOrdinal, &rec.ClientID, &rec.AgentID, &rec.PropertyID,
		&rec.Title, &rec.Notes, &rec.Services, &rec.CreatedBy, &rec.UpdatedBy,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt,
	)
	return rec, err
}
