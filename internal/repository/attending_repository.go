package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/ticketing"
)

// ErrAttendingNotFound indicates that an attendance record was not
// located for the requested event.
var ErrAttendingNotFound = errors.New("attending record not found")

// AttendingRepo provides CRUD operations for attendance records.  An
// attendance record is one user's ticket claim for one event.
// Creation and update run the ticketing validator inside the same
// transaction as the write, so the per-section capacity count and
// the insert cannot interleave with a concurrent claim for the same
// section.
type AttendingRepo struct {
	db *sql.DB
}

// NewAttendingRepo returns a new AttendingRepo bound to the given database.
func NewAttendingRepo(db *sql.DB) *AttendingRepo { return &AttendingRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *AttendingRepo) DB() *sql.DB { return r.db }

// txCapacitySource answers the validator's aggregate queries from
// within the write transaction.  The COUNT uses FOR UPDATE so that
// the matching rows stay locked until the transaction commits; a
// second claim for the last slot in a section blocks on the lock and
// then sees the committed row.
type txCapacitySource struct{ tx *sql.Tx }

// CountBySection counts existing attendance rows for the event and
// seat section, locking them for the remainder of the transaction.
func (s txCapacitySource) CountBySection(ctx context.Context, eventID uint64, section ticketing.Section) (int, error) {
	const q = `SELECT COUNT(*) FROM attending WHERE event_id = ? AND seat_section = ? FOR UPDATE`
	var n int
	err := s.tx.QueryRowContext(ctx, q, eventID, string(section)).Scan(&n)
	return n, err
}

// TicketsByEmail sums tickets already claimed by the user with the
// given email across all events.
func (s txCapacitySource) TicketsByEmail(ctx context.Context, email string) (int, error) {
	const q = `SELECT COALESCE(SUM(a.total_tickets), 0)
	           FROM attending a
	           JOIN users u ON u.id = a.attending_id
	           WHERE u.email = ? FOR UPDATE`
	var n int
	err := s.tx.QueryRowContext(ctx, q, email).Scan(&n)
	return n, err
}

// Create validates the ticket claim and persists it in a single
// transaction.  On success the generated ID and stored timestamp are
// populated on the given record.  A *ticketing.ValidationError is
// returned when the claim fails validation; the caller's email is
// only consulted when the per-email cap is enabled on the validator.
func (r *AttendingRepo) Create(ctx context.Context, v *ticketing.Validator, att *model.Attending, email string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	req := ticketing.Request{TotalTickets: att.TotalTickets, SeatSection: att.SeatSection}
	if err := v.Validate(ctx, txCapacitySource{tx}, att.EventID, email, req, true); err != nil {
		return err
	}
	// Store the canonical section spelling, not the client's casing.
	section, _ := ticketing.ParseSection(att.SeatSection)
	att.SeatSection = string(section)
	if att.Timestamp.IsZero() {
		att.Timestamp = time.Now().UTC()
	}

	const q = `INSERT INTO attending (total_tickets, seat_section, timestamp, event_id, attending_id) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, att.TotalTickets, att.SeatSection, att.Timestamp, att.EventID, att.AttendingID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	att.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AttendingPatch carries the optional fields of an attendance
// update.  A nil field keeps the stored value; this replaces the
// older "falsy means absent" merge, which made it impossible to
// distinguish an intentional zero from an omitted field.
type AttendingPatch struct {
	TotalTickets *int
	SeatSection  *string
	Timestamp    *time.Time
}

// Update applies a patch to an attendance record, re-running the
// validator on the merged values inside the update transaction.  The
// capacity check is skipped when the seat section is unchanged,
// since the row already occupies its slot in that section.
// ErrAttendingNotFound is returned when no record with the given id
// exists for the event.
func (r *AttendingRepo) Update(ctx context.Context, v *ticketing.Validator, eventID, id uint64, p AttendingPatch, email string) (model.Attending, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Attending{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, total_tickets, seat_section, timestamp, event_id, attending_id
	             FROM attending WHERE event_id = ? AND id = ? FOR UPDATE`
	var att model.Attending
	err = tx.QueryRowContext(ctx, sel, eventID, id).Scan(
		&att.ID, &att.TotalTickets, &att.SeatSection, &att.Timestamp, &att.EventID, &att.AttendingID,
	)
	if err == sql.ErrNoRows {
		return model.Attending{}, ErrAttendingNotFound
	}
	if err != nil {
		return model.Attending{}, err
	}

	sectionChanged := false
	if p.TotalTickets != nil {
		att.TotalTickets = *p.TotalTickets
	}
	if p.SeatSection != nil {
		if next, ok := ticketing.ParseSection(*p.SeatSection); !ok || string(next) != att.SeatSection {
			sectionChanged = true
		}
		att.SeatSection = *p.SeatSection
	}
	if p.Timestamp != nil {
		att.Timestamp = *p.Timestamp
	}

	req := ticketing.Request{TotalTickets: att.TotalTickets, SeatSection: att.SeatSection}
	if err := v.Validate(ctx, txCapacitySource{tx}, eventID, email, req, sectionChanged); err != nil {
		return model.Attending{}, err
	}
	section, _ := ticketing.ParseSection(att.SeatSection)
	att.SeatSection = string(section)

	const upd = `UPDATE attending SET total_tickets = ?, seat_section = ?, timestamp = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, att.TotalTickets, att.SeatSection, att.Timestamp, att.ID); err != nil {
		return model.Attending{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Attending{}, err
	}
	committed = true
	return att, nil
}

// GetByID fetches one attendance record scoped to an event.
func (r *AttendingRepo) GetByID(ctx context.Context, eventID, id uint64) (model.Attending, error) {
	const q = `SELECT id, total_tickets, seat_section, timestamp, event_id, attending_id
	           FROM attending WHERE event_id = ? AND id = ?`
	var att model.Attending
	err := r.db.QueryRowContext(ctx, q, eventID, id).Scan(
		&att.ID, &att.TotalTickets, &att.SeatSection, &att.Timestamp, &att.EventID, &att.AttendingID,
	)
	if err == sql.ErrNoRows {
		return att, ErrAttendingNotFound
	}
	return att, err
}

// Exists reports whether an attendance record with the given id is
// present for the event.
func (r *AttendingRepo) Exists(ctx context.Context, eventID, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM attending WHERE event_id = ? AND id = ?`, eventID, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes an attendance record.  Its invoices are removed by
// the database through ON DELETE CASCADE.  ErrAttendingNotFound is
// returned when no row was deleted.
func (r *AttendingRepo) Delete(ctx context.Context, eventID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM attending WHERE event_id = ? AND id = ?`, eventID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttendingNotFound
	}
	return nil
}

// AttendingDetail is an attendance record together with summaries of
// its user, event and invoices, shaped for API responses.
type AttendingDetail struct {
	ID           uint64           `json:"id"`
	TotalTickets int              `json:"total_tickets"`
	SeatSection  string           `json:"seat_section"`
	Timestamp    string           `json:"timestamp"`
	EventID      uint64           `json:"event_id"`
	AttendingID  uint64           `json:"attending_id"`
	User         AttendeeUser     `json:"user"`
	Event        AttendeeEvent    `json:"event"`
	Invoices     []InvoiceSummary `json:"invoices"`
}

// AttendeeUser is the slimmed user nested under an attendance
// response.
type AttendeeUser struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// AttendeeEvent is the slimmed event nested under an attendance
// response.
type AttendeeEvent struct {
	Title       string  `json:"title"`
	TicketPrice float64 `json:"ticket_price"`
}

// GetDetail loads one attendance record with its nested user, event
// and invoice summaries.  ErrAttendingNotFound is returned when the
// record does not exist for the event.
func (r *AttendingRepo) GetDetail(ctx context.Context, eventID, id uint64) (*AttendingDetail, error) {
	const q = `SELECT a.id, a.total_tickets, a.seat_section, a.timestamp, a.event_id, a.attending_id,
	                  u.name, u.email, u.is_admin,
	                  e.title, e.ticket_price
	           FROM attending a
	           JOIN users u ON u.id = a.attending_id
	           JOIN events e ON e.id = a.event_id
	           WHERE a.event_id = ? AND a.id = ?`
	var det AttendingDetail
	var ts time.Time
	err := r.db.QueryRowContext(ctx, q, eventID, id).Scan(
		&det.ID, &det.TotalTickets, &det.SeatSection, &ts, &det.EventID, &det.AttendingID,
		&det.User.Name, &det.User.Email, &det.User.IsAdmin,
		&det.Event.Title, &det.Event.TicketPrice,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAttendingNotFound
	}
	if err != nil {
		return nil, err
	}
	det.Timestamp = ts.UTC().Format(time.RFC3339)
	det.Invoices = []InvoiceSummary{}
	const invQ = `SELECT total_cost FROM invoices WHERE attendee_id = ? ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, invQ, det.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s InvoiceSummary
		if err := rows.Scan(&s.TotalCost); err != nil {
			return nil, err
		}
		det.Invoices = append(det.Invoices, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &det, nil
}

// ListByEvent returns all attendance records for an event with their
// nested summaries, ordered by timestamp descending (newest first).
// Invoice summaries are populated with a single batched query.
func (r *AttendingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]AttendingDetail, error) {
	const q = `SELECT a.id, a.total_tickets, a.seat_section, a.timestamp, a.event_id, a.attending_id,
	                  u.name, u.email, u.is_admin,
	                  e.title, e.ticket_price
	           FROM attending a
	           JOIN users u ON u.id = a.attending_id
	           JOIN events e ON e.id = a.event_id
	           WHERE a.event_id = ?
	           ORDER BY a.timestamp DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]AttendingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d AttendingDetail
		var ts time.Time
		if err := rows.Scan(
			&d.ID, &d.TotalTickets, &d.SeatSection, &ts, &d.EventID, &d.AttendingID,
			&d.User.Name, &d.User.Email, &d.User.IsAdmin,
			&d.Event.Title, &d.Event.TicketPrice,
		); err != nil {
			return nil, err
		}
		d.Timestamp = ts.UTC().Format(time.RFC3339)
		d.Invoices = []InvoiceSummary{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	ids := make([]interface{}, 0, len(details))
	placeholders := ""
	for i, d := range details {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		ids = append(ids, d.ID)
	}
	invQ := `SELECT attendee_id, total_cost FROM invoices WHERE attendee_id IN (` + placeholders + `) ORDER BY attendee_id, timestamp DESC`
	irows, err := r.db.QueryContext(ctx, invQ, ids...)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var attendeeID uint64
		var s InvoiceSummary
		if err := irows.Scan(&attendeeID, &s.TotalCost); err != nil {
			return nil, err
		}
		if idx, ok := index[attendeeID]; ok {
			details[idx].Invoices = append(details[idx].Invoices, s)
		}
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
