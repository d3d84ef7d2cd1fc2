package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrInvoiceNotFound indicates that an invoice was not located for
// the requested event and attendance record.
var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepo manages persistence for invoices.  Every query is
// scoped to an (event, attendance) pair so an invoice can never be
// read or mutated through a different event's URL.
type InvoiceRepo struct {
	db *sql.DB
}

// NewInvoiceRepo returns a new InvoiceRepo bound to the given database.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// Create inserts a new invoice and populates the generated ID on the
// given record.  Reference and Timestamp must already be set by the
// caller.  A duplicate reference surfaces as ErrConflict (MySQL
// error 1062 on the unique index).
func (r *InvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	const q = `INSERT INTO invoices (total_cost, reference, timestamp, event_id, attendee_id) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, inv.TotalCost, inv.Reference, inv.Timestamp, inv.EventID, inv.AttendeeID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// GetByID fetches one invoice scoped to an event and attendance
// record.  ErrInvoiceNotFound is returned when no such row exists.
func (r *InvoiceRepo) GetByID(ctx context.Context, eventID, attendeeID, id uint64) (model.Invoice, error) {
	const q = `SELECT id, total_cost, reference, timestamp, event_id, attendee_id
	           FROM invoices WHERE event_id = ? AND attendee_id = ? AND id = ?`
	var inv model.Invoice
	err := r.db.QueryRowContext(ctx, q, eventID, attendeeID, id).Scan(
		&inv.ID, &inv.TotalCost, &inv.Reference, &inv.Timestamp, &inv.EventID, &inv.AttendeeID,
	)
	if err == sql.ErrNoRows {
		return inv, ErrInvoiceNotFound
	}
	return inv, err
}

// ListByAttendee returns all invoices for an attendance record,
// ordered by timestamp descending.  An empty slice means none exist.
func (r *InvoiceRepo) ListByAttendee(ctx context.Context, eventID, attendeeID uint64) ([]model.Invoice, error) {
	const q = `SELECT id, total_cost, reference, timestamp, event_id, attendee_id
	           FROM invoices WHERE event_id = ? AND attendee_id = ?
	           ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invoices := make([]model.Invoice, 0)
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.TotalCost, &inv.Reference, &inv.Timestamp, &inv.EventID, &inv.AttendeeID); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// InvoicePatch carries the optional fields of an invoice update.  A
// nil field keeps the stored value.
type InvoicePatch struct {
	TotalCost *float64
	Timestamp *time.Time
}

// Update applies a patch to an invoice and returns the updated row.
// ErrInvoiceNotFound is returned when the invoice does not exist for
// the given event and attendance record.
func (r *InvoiceRepo) Update(ctx context.Context, eventID, attendeeID, id uint64, p InvoicePatch) (model.Invoice, error) {
	inv, err := r.GetByID(ctx, eventID, attendeeID, id)
	if err != nil {
		return inv, err
	}
	if p.TotalCost != nil {
		inv.TotalCost = *p.TotalCost
	}
	if p.Timestamp != nil {
		inv.Timestamp = *p.Timestamp
	}
	const q = `UPDATE invoices SET total_cost = ?, timestamp = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, inv.TotalCost, inv.Timestamp, inv.ID); err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

// Delete removes an invoice.  ErrInvoiceNotFound is returned when no
// row was deleted.
func (r *InvoiceRepo) Delete(ctx context.Context, eventID, attendeeID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE event_id = ? AND attendee_id = ? AND id = ?`, eventID, attendeeID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
