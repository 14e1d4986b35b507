package tenant

import (
	"testing"
	"time"
)

// salonTenant mirrors a typical Italian salon: open Tue-Sat, closed Mon/Sun,
// shorter Saturday, holiday overrides for Dec 25 and Jan 1.
func salonTenant() *Tenant {
	return &Tenant{
		Name:     "Aura Hair Studio",
		Timezone: "Europe/Rome",
		Language: "it",
		Status:   StatusActive,
		Schedule: WeeklySchedule{
			time.Tuesday:   {Open: "09:00", Close: "18:00"},
			time.Wednesday: {Open: "09:00", Close: "18:00"},
			time.Thursday:  {Open: "09:00", Close: "18:00", BreakStart: "13:00", BreakEnd: "14:00"},
			time.Friday:    {Open: "09:00", Close: "18:00"},
			time.Saturday:  {Open: "09:00", Close: "17:00"},
		},
		Overrides: []ScheduleOverride{
			{From: "2026-12-25", To: "2026-12-25", Closed: true, Reason: "Natale"},
			{From: "2027-01-01", To: "2027-01-01", Closed: true, Reason: "Capodanno"},
		},
		Services: map[string]Service{
			"taglio_donna": {
				Code:            "taglio_donna",
				Names:           map[string]string{"it": "Taglio Donna", "en": "Women's Haircut"},
				PriceCents:      6000,
				DurationMinutes: 45,
			},
		},
	}
}

func mustDate(t *testing.T, value string, loc *time.Location) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestWithinHours(t *testing.T) {
	tn := salonTenant()
	rome := tn.Location()

	tests := []struct {
		name   string
		start  string
		dur    time.Duration
		ok     bool
		reason string
	}{
		{"tuesday mid-afternoon", "2026-09-01 15:00", 45 * time.Minute, true, ""},
		{"monday closed", "2026-08-31 10:00", 45 * time.Minute, false, "closed"},
		{"sunday closed", "2026-09-06 10:00", 45 * time.Minute, false, "closed"},
		{"before opening", "2026-09-01 08:30", 30 * time.Minute, false, "outside_hours"},
		{"runs past closing", "2026-09-01 17:30", 45 * time.Minute, false, "outside_hours"},
		{"saturday closes early", "2026-09-05 16:30", 45 * time.Minute, false, "outside_hours"},
		{"thursday during break", "2026-09-03 13:15", 30 * time.Minute, false, "break"},
		{"thursday overlapping break start", "2026-09-03 12:45", 30 * time.Minute, false, "break"},
		{"thursday after break", "2026-09-03 14:00", 45 * time.Minute, true, ""},
		{"christmas closed", "2026-12-25 10:00", 45 * time.Minute, false, "closed"},
		{"new year closed", "2027-01-01 10:00", 45 * time.Minute, false, "closed"},
		{"day after christmas open", "2026-12-26 10:00", 45 * time.Minute, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := tn.WithinHours(mustDate(t, tt.start, rome), tt.dur)
			if ok != tt.ok {
				t.Fatalf("WithinHours(%s) = %v, want %v (reason %q)", tt.start, ok, tt.ok, reason)
			}
			if reason != tt.reason {
				t.Fatalf("WithinHours(%s) reason = %q, want %q", tt.start, reason, tt.reason)
			}
		})
	}
}

func TestHoursOnOverrideWithAlteredHours(t *testing.T) {
	tn := salonTenant()
	tn.Overrides = append(tn.Overrides, ScheduleOverride{
		From:  "2026-09-04",
		To:    "2026-09-04",
		Hours: &DayHours{Open: "10:00", Close: "14:00"},
	})

	friday := mustDate(t, "2026-09-04 10:00", tn.Location())
	hours, open := tn.HoursOn(friday)
	if !open {
		t.Fatal("expected override day to be open")
	}
	if hours.Open != "10:00" || hours.Close != "14:00" {
		t.Fatalf("expected override hours 10:00-14:00, got %s-%s", hours.Open, hours.Close)
	}
}

func TestOpenWindowsSplitAroundBreak(t *testing.T) {
	tn := salonTenant()
	thursday := mustDate(t, "2026-09-03 00:00", tn.Location())

	windows := tn.OpenWindowsOn(thursday)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows around break, got %d", len(windows))
	}
	if windows[0] != [2]int{9 * 60, 13 * 60} {
		t.Errorf("morning window = %v", windows[0])
	}
	if windows[1] != [2]int{14 * 60, 18 * 60} {
		t.Errorf("afternoon window = %v", windows[1])
	}
}

func TestLocalizedName(t *testing.T) {
	svc := salonTenant().Services["taglio_donna"]
	if got := svc.LocalizedName("en"); got != "Women's Haircut" {
		t.Errorf("en name = %q", got)
	}
	if got := svc.LocalizedName("it"); got != "Taglio Donna" {
		t.Errorf("it name = %q", got)
	}
	if got := svc.LocalizedName("de"); got == "" || got == svc.Code {
		t.Errorf("missing localization should fall back to another name, got %q", got)
	}
}
