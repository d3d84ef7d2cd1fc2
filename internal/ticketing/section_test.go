package ticketing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSection(t *testing.T) {
	cases := []struct {
		in   string
		want Section
		ok   bool
	}{
		{"General Admission", GeneralAdmission, true},
		{"general admission", GeneralAdmission, true},
		{"  Section A  ", SectionA, true},
		{"section b", SectionB, true},
		{"SECTION C", SectionC, true},
		{"vip", VIP, true},
		{"VIP", VIP, true},
		{"", "", false},
		{"Balcony", "", false},
		{"Section D", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSection(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestSectionCaps(t *testing.T) {
	require.Len(t, Sections(), 5)
	for _, s := range Sections() {
		if s == VIP {
			assert.Equal(t, 2, Cap(s))
		} else {
			assert.Equal(t, 5, Cap(s))
		}
	}
	assert.Equal(t, 0, Cap(Section("Balcony")))
}
