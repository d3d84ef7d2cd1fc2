// Package repository contains data access logic for the ticketing
// domain. This file defines repository methods for events. An Event
// is created by a user who becomes its admin; attendance records and
// invoices referencing the event are removed by ON DELETE CASCADE
// when the event row is deleted.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event and populates the generated ID and
// DB-default fields (created_at, updated_at) on the given Event.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (title, description, date, ticket_price, event_admin_id) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.Title, e.Description, e.Date, e.TicketPrice, e.EventAdminID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT id, title, description, date, ticket_price, event_admin_id, created_at, updated_at FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, e.ID).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.TicketPrice, &e.EventAdminID, &e.CreatedAt, &e.UpdatedAt,
	)
}

// GetByID fetches a single event.  ErrEventNotFound is returned when
// no row with the given id exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	const q = `SELECT id, title, description, date, ticket_price, event_admin_id, created_at, updated_at FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.TicketPrice, &e.EventAdminID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return e, ErrEventNotFound
	}
	return e, err
}

// Exists reports whether an event with the given id is present.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all events ordered by date descending (upcoming and
// recent first).  When no events exist, an empty slice is returned.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, title, description, date, ticket_price, event_admin_id, created_at, updated_at FROM events ORDER BY date DESC`
	return r.queryEvents(ctx, q)
}

// SearchByTitle returns events whose title contains the given text,
// matched case-insensitively.  An empty slice means no match.
func (r *EventRepo) SearchByTitle(ctx context.Context, title string) ([]model.Event, error) {
	const q = `SELECT id, title, description, date, ticket_price, event_admin_id, created_at, updated_at
	           FROM events WHERE LOWER(title) LIKE ? ORDER BY date DESC`
	pattern := "%" + strings.ToLower(strings.TrimSpace(title)) + "%"
	return r.queryEvents(ctx, q, pattern)
}

func (r *EventRepo) queryEvents(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.TicketPrice, &e.EventAdminID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// EventPatch carries the optional fields of an event update.  A nil
// field means "leave the current value alone"; this replaces the
// older behavior of treating empty strings and zeros as absent.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *time.Time
	TicketPrice *float64
}

// Update applies a patch to an event and returns the updated row.
// Only fields present in the patch are written.  ErrEventNotFound is
// returned when the event does not exist.
func (r *EventRepo) Update(ctx context.Context, id uint64, p EventPatch) (model.Event, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *p.Date)
	}
	if p.TicketPrice != nil {
		sets = append(sets, "ticket_price = ?")
		args = append(args, *p.TicketPrice)
	}
	if len(sets) > 0 {
		args = append(args, id)
		q := "UPDATE events SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return model.Event{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event.  Attendance rows and invoices referencing
// it are removed by the database through ON DELETE CASCADE.
// ErrEventNotFound is returned when no row was deleted.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// EventDetail is an event together with summaries of its attendance
// records and invoices, shaped for API responses.
type EventDetail struct {
	ID           uint64            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Date         string            `json:"date"`
	TicketPrice  float64           `json:"ticket_price"`
	EventAdminID uint64            `json:"event_admin_id"`
	Attending    []EventAttendee   `json:"attending"`
	Invoices     []InvoiceSummary  `json:"invoices"`
}

// EventAttendee is the slimmed attendance entry nested under an
// event detail response.
type EventAttendee struct {
	AttendingID  uint64 `json:"id"`
	SeatSection  string `json:"seat_section"`
	TotalTickets int    `json:"total_tickets"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
}

// InvoiceSummary carries just the billed amount of an invoice for
// nesting inside other responses.
type InvoiceSummary struct {
	TotalCost float64 `json:"total_cost"`
}

// GetDetail loads an event along with its attendees (joined to the
// claiming user) and invoice summaries.  ErrEventNotFound is
// returned when the event does not exist.
func (r *EventRepo) GetDetail(ctx context.Context, id uint64) (*EventDetail, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	det := &EventDetail{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date.Format("2006-01-02"),
		TicketPrice:  e.TicketPrice,
		EventAdminID: e.EventAdminID,
		Attending:    []EventAttendee{},
		Invoices:     []InvoiceSummary{},
	}
	const attQ = `SELECT a.id, a.seat_section, a.total_tickets, u.name, u.email
	              FROM attending a
	              JOIN users u ON u.id = a.attending_id
	              WHERE a.event_id = ?
	              ORDER BY a.timestamp DESC`
	rows, err := r.db.QueryContext(ctx, attQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a EventAttendee
		if err := rows.Scan(&a.AttendingID, &a.SeatSection, &a.TotalTickets, &a.UserName, &a.UserEmail); err != nil {
			return nil, err
		}
		det.Attending = append(det.Attending, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	const invQ = `SELECT total_cost FROM invoices WHERE event_id = ? ORDER BY timestamp DESC`
	irows, err := r.db.QueryContext(ctx, invQ, id)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var s InvoiceSummary
		if err := irows.Scan(&s.TotalCost); err != nil {
			return nil, err
		}
		det.Invoices = append(det.Invoices, s)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}
	return det, nil
}
