// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketConfirmedEvent is published when a ticket claim is
// successfully persisted.  It carries enough information for
// downstream consumers to log, notify, or feed analytics without
// querying the primary database.
type TicketConfirmedEvent struct {
	AttendingID  uint64  `json:"attending_id"`
	UserID       uint64  `json:"user_id"`
	UserEmail    string  `json:"user_email"`
	EventID      uint64  `json:"event_id"`
	EventTitle   string  `json:"event_title"`
	SeatSection  string  `json:"seat_section"`
	TotalTickets int     `json:"total_tickets"`
	TicketPrice  float64 `json:"ticket_price"`
	ConfirmedAt  string  `json:"confirmed_at"`
}
