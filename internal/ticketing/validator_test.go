package ticketing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapacity is a CapacitySource backed by fixed counts.
type fakeCapacity struct {
	counts      map[Section]int
	emailTotals map[string]int
	err         error
}

func (f fakeCapacity) CountBySection(_ context.Context, _ uint64, s Section) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[s], nil
}

func (f fakeCapacity) TicketsByEmail(_ context.Context, email string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.emailTotals[email], nil
}

func validate(t *testing.T, v *Validator, src CapacitySource, req Request, checkCapacity bool) *ValidationError {
	t.Helper()
	err := v.Validate(context.Background(), src, 1, "ada@example.com", req, checkCapacity)
	if err == nil {
		return nil
	}
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func TestValidateAcceptsValidClaim(t *testing.T) {
	v := &Validator{}
	src := fakeCapacity{counts: map[Section]int{VIP: 1}}
	for _, n := range []int{1, 2, 3, 4, 5} {
		verr := validate(t, v, src, Request{TotalTickets: n, SeatSection: "Section A"}, true)
		assert.Nil(t, verr, "tickets=%d", n)
	}
}

func TestValidateTicketBounds(t *testing.T) {
	v := &Validator{}
	src := fakeCapacity{}

	verr := validate(t, v, src, Request{TotalTickets: 0, SeatSection: "VIP"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["total_tickets"], "At least 1 ticket is required")

	verr = validate(t, v, src, Request{TotalTickets: -3, SeatSection: "VIP"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["total_tickets"], "At least 1 ticket is required")

	verr = validate(t, v, src, Request{TotalTickets: 6, SeatSection: "VIP"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["total_tickets"], "Maximum 5 tickets allowed per user per event")
}

func TestValidateUnknownSection(t *testing.T) {
	v := &Validator{}
	verr := validate(t, v, fakeCapacity{}, Request{TotalTickets: 1, SeatSection: "Balcony"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["seat_section"], "Please enter a valid seating section")
}

func TestValidateSectionFull(t *testing.T) {
	v := &Validator{}
	src := fakeCapacity{counts: map[Section]int{VIP: 2}}
	verr := validate(t, v, src, Request{TotalTickets: 1, SeatSection: "VIP"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["seat_section"],
		"No more VIP tickets available, please select a different seat section")
}

func TestValidateVIPLastSlot(t *testing.T) {
	// One of the two VIP slots taken: the next claim fits, the one
	// after it does not.
	v := &Validator{}
	verr := validate(t, v, fakeCapacity{counts: map[Section]int{VIP: 1}},
		Request{TotalTickets: 2, SeatSection: "vip"}, true)
	assert.Nil(t, verr)

	verr = validate(t, v, fakeCapacity{counts: map[Section]int{VIP: 2}},
		Request{TotalTickets: 1, SeatSection: "vip"}, true)
	require.NotNil(t, verr)
}

func TestValidateSkipsCapacityWhenUnchanged(t *testing.T) {
	// Updates that keep the section skip the capacity check: the row
	// already occupies its slot.
	v := &Validator{}
	src := fakeCapacity{counts: map[Section]int{VIP: 2}}
	verr := validate(t, v, src, Request{TotalTickets: 2, SeatSection: "VIP"}, false)
	assert.Nil(t, verr)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	v := &Validator{}
	verr := validate(t, v, fakeCapacity{}, Request{TotalTickets: 9, SeatSection: "Balcony"}, true)
	require.NotNil(t, verr)
	assert.Len(t, verr.Fields, 2)
	assert.NotEmpty(t, verr.Fields["total_tickets"])
	assert.NotEmpty(t, verr.Fields["seat_section"])
}

func TestValidateEmailCap(t *testing.T) {
	src := fakeCapacity{emailTotals: map[string]int{"ada@example.com": 4}}

	off := &Validator{EmailCapEnabled: false}
	verr := validate(t, off, src, Request{TotalTickets: 3, SeatSection: "Section B"}, true)
	assert.Nil(t, verr)

	on := &Validator{EmailCapEnabled: true}
	verr = validate(t, on, src, Request{TotalTickets: 1, SeatSection: "Section B"}, true)
	assert.Nil(t, verr)

	verr = validate(t, on, src, Request{TotalTickets: 2, SeatSection: "Section B"}, true)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields["total_tickets"], "Maximum 5 tickets allowed per email address")
}

func TestValidatePropagatesStoreErrors(t *testing.T) {
	v := &Validator{}
	boom := errors.New("connection reset")
	err := v.Validate(context.Background(), fakeCapacity{err: boom}, 1, "",
		Request{TotalTickets: 1, SeatSection: "VIP"}, true)
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestValidationErrorString(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("total_tickets", "At least 1 ticket is required")
	assert.True(t, verr.HasErrors())
	assert.Contains(t, verr.Error(), "total_tickets")
}
