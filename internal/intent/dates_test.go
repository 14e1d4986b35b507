package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func romeNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	// Tuesday.
	return time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
}

func TestResolveDate(t *testing.T) {
	now := romeNow(t)
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"oggi", "2026-09-01", true},
		{"Domani", "2026-09-02", true},
		{"tomorrow", "2026-09-02", true},
		{"dopodomani", "2026-09-03", true},
		{"sabato", "2026-09-05", true},
		{"martedì", "2026-09-08", true}, // same weekday means next week
		{"friday", "2026-09-04", true},
		{"2026-10-15", "2026-10-15", true},
		{"3/9", "2026-09-03", true},
		{"15/01", "2027-01-15", true}, // already past this year
		{"12/10/2026", "2026-10-12", true},
		{"boh", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveDate(tc.ref, now)
		assert.Equal(t, tc.ok, ok, "ref %q", tc.ref)
		assert.Equal(t, tc.want, got, "ref %q", tc.ref)
	}
}

func TestResolveTime(t *testing.T) {
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"15:00", "15:00", true},
		{"15.30", "15:30", true},
		{"alle 3", "15:00", true},
		{"alle 9", "09:00", true},
		{"at 3pm", "15:00", true},
		{"11am", "11:00", true},
		{"12am", "00:00", true},
		{"7", "19:00", true},
		{"8", "08:00", true},
		{"25:00", "", false},
		{"pomeriggio", "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveTime(tc.ref)
		assert.Equal(t, tc.ok, ok, "ref %q", tc.ref)
		assert.Equal(t, tc.want, got, "ref %q", tc.ref)
	}
}
