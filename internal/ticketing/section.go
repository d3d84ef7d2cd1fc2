// Package ticketing implements the ticket-allocation rules applied
// before an attendance record is written: per-record ticket limits,
// the fixed set of seat sections, and per-section capacity caps.
package ticketing

import "strings"

// Section is one of the five fixed ticket tiers an attendee can
// claim a seat in.  The string values are stored verbatim in the
// `attending.seat_section` column and rendered in API responses.
type Section string

const (
	GeneralAdmission Section = "General Admission"
	SectionA         Section = "Section A"
	SectionB         Section = "Section B"
	SectionC         Section = "Section C"
	VIP              Section = "VIP"
)

// sectionCaps maps each section to the maximum number of attendance
// rows allowed in it for a single event.
var sectionCaps = map[Section]int{
	GeneralAdmission: 5,
	SectionA:         5,
	SectionB:         5,
	SectionC:         5,
	VIP:              2,
}

// Sections returns the valid seat sections in display order.
func Sections() []Section {
	return []Section{GeneralAdmission, SectionA, SectionB, SectionC, VIP}
}

// Cap returns the capacity cap for the given section.  Unknown
// sections have capacity zero.
func Cap(s Section) int {
	return sectionCaps[s]
}

// ParseSection normalizes a raw seat-section value.  Matching is
// case-insensitive and ignores surrounding whitespace so that
// clients sending "vip" or " Section A " are accepted.  The second
// return value reports whether the input named a known section.
func ParseSection(raw string) (Section, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range Sections() {
		if strings.EqualFold(trimmed, string(s)) {
			return s, true
		}
	}
	return "", false
}
