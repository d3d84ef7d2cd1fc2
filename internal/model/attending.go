package model

import "time"

// Attending is a row in the `attending` table: one user's ticket
// claim for one event.  The seat section and ticket count are
// validated by the ticketing package before a row is inserted or
// updated.  Invoices referencing the row are cascade-deleted with it.
//
// Fields:
//  ID           – primary key identifier.
//  TotalTickets – number of tickets claimed, defaults to 1, range [1,5].
//  SeatSection  – one of the five fixed seat sections.
//  Timestamp    – when the record was created or last modified.
//  EventID      – event the claim is for.
//  AttendingID  – user making the claim (attending.attending_id
//                 references users.id; the column name is historical).
type Attending struct {
	ID           uint64    // attending.id
	TotalTickets int       // attending.total_tickets (default 1)
	SeatSection  string    // attending.seat_section
	Timestamp    time.Time // attending.timestamp
	EventID      uint64    // attending.event_id (references events.id)
	AttendingID  uint64    // attending.attending_id (references users.id)
}
