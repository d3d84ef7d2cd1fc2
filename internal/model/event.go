package model

import "time"

// Event is a row in the `events` table.  An event is created by a
// user who becomes its admin; attendance records and invoices hang
// off the event and are cascade-deleted with it.
//
// Fields:
//  ID           – primary key identifier.
//  Title        – event title.
//  Description  – free-form description.
//  Date         – calendar date of the event.
//  TicketPrice  – price per ticket, defaults to 0.00.
//  EventAdminID – user who created and administers the event.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Event struct {
	ID           uint64    // events.id
	Title        string    // events.title
	Description  string    // events.description
	Date         time.Time // events.date
	TicketPrice  float64   // events.ticket_price (default 0.00)
	EventAdminID uint64    // events.event_admin_id (references users.id)
	CreatedAt    time.Time // events.created_at
	UpdatedAt    time.Time // events.updated_at
}
