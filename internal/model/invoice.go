package model

import "time"

// Invoice is a row in the `invoices` table.  An invoice belongs to
// exactly one attendance record and one event; an attendance record
// may accumulate several invoices.  Deleting the parent attendance
// row or the event removes its invoices.
//
// Fields:
//  ID         – primary key identifier.
//  TotalCost  – invoiced amount, defaults to 0.00.
//  Reference  – generated UUID handed to the customer.
//  Timestamp  – when the invoice was issued or last modified.
//  EventID    – event the invoice relates to.
//  AttendeeID – attendance record the invoice bills.
type Invoice struct {
	ID         uint64    // invoices.id
	TotalCost  float64   // invoices.total_cost (default 0.00)
	Reference  string    // invoices.reference (uuid)
	Timestamp  time.Time // invoices.timestamp
	EventID    uint64    // invoices.event_id (references events.id)
	AttendeeID uint64    // invoices.attendee_id (references attending.id)
}
