package ticketing

import (
	"context"
	"fmt"
	"strings"
)

// Ticket limits enforced per attendance record and, optionally, per
// email address across events.
const (
	MinTicketsPerRecord = 1
	MaxTicketsPerRecord = 5
	MaxTicketsPerEmail  = 5
)

// Request carries the client-supplied fields of a ticket claim that
// the validator inspects.  SeatSection is the raw string from the
// request body; it is normalized through ParseSection.
type Request struct {
	TotalTickets int
	SeatSection  string
}

// CapacitySource answers the aggregate questions the validator asks
// of the store.  Implementations are read-only; the repository
// provides one backed by the transaction that will perform the
// insert so the count and the write cannot interleave with a
// concurrent claim for the same section.
type CapacitySource interface {
	// CountBySection returns how many attendance rows already exist
	// for the given event and seat section.
	CountBySection(ctx context.Context, eventID uint64, section Section) (int, error)
	// TicketsByEmail returns the total tickets already claimed by the
	// user with the given email address, across all events.
	TicketsByEmail(ctx context.Context, email string) (int, error)
}

// ValidationError aggregates every field-level problem found in one
// pass so the caller receives all reasons at once rather than only
// the first.
type ValidationError struct {
	Fields map[string][]string
}

// Add records a problem against a field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any problem was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

// Error renders all recorded problems as a single string.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, " | ")
}

// Validator gates creation and update of attendance records.  It is
// stateless apart from configuration; capacity figures are read from
// the CapacitySource at validation time so they always reflect the
// store, never a cached counter.
type Validator struct {
	// EmailCapEnabled turns on the aggregate per-email ticket cap.
	// The rule existed only as a draft in earlier revisions of the
	// product, so it ships disabled unless configured on.
	EmailCapEnabled bool
}

// Validate checks a ticket claim for the given event.  email is the
// claiming user's address, used only when the per-email cap is
// enabled.  checkCapacity is false on updates that keep the existing
// seat section, where the row being updated already occupies its
// slot.  A *ValidationError is returned when any rule fails; other
// errors indicate a store failure.
func (v *Validator) Validate(ctx context.Context, src CapacitySource, eventID uint64, email string, req Request, checkCapacity bool) error {
	verr := &ValidationError{}

	if req.TotalTickets < MinTicketsPerRecord {
		verr.Add("total_tickets", fmt.Sprintf("At least %d ticket is required", MinTicketsPerRecord))
	} else if req.TotalTickets > MaxTicketsPerRecord {
		verr.Add("total_tickets", fmt.Sprintf("Maximum %d tickets allowed per user per event", MaxTicketsPerRecord))
	}

	section, ok := ParseSection(req.SeatSection)
	if !ok {
		verr.Add("seat_section", "Please enter a valid seating section")
	} else if checkCapacity {
		count, err := src.CountBySection(ctx, eventID, section)
		if err != nil {
			return err
		}
		if count >= Cap(section) {
			verr.Add("seat_section", fmt.Sprintf("No more %s tickets available, please select a different seat section", section))
		}
	}

	if v.EmailCapEnabled && email != "" {
		sum, err := src.TicketsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if sum+req.TotalTickets > MaxTicketsPerEmail {
			verr.Add("total_tickets", fmt.Sprintf("Maximum %d tickets allowed per email address", MaxTicketsPerEmail))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
