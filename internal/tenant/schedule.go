package tenant

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayHours describes one weekday's opening window, with an optional midday break.
// Times are "HH:MM" in the tenant's timezone.
type DayHours struct {
	Open       string `json:"open"`
	Close      string `json:"close"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
}

// WeeklySchedule maps weekdays to opening hours. A missing weekday is a
// closed day.
type WeeklySchedule map[time.Weekday]DayHours

// ScheduleOverride replaces the weekly schedule for a bounded date range,
// either closing the business or substituting different hours. Holiday
// closures are modeled as single-day closed overrides.
type ScheduleOverride struct {
	From   string    `json:"from"` // inclusive, "YYYY-MM-DD"
	To     string    `json:"to"`   // inclusive
	Closed bool      `json:"closed"`
	Hours  *DayHours `json:"hours,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// HoursOn resolves the effective opening hours for a calendar date,
// consulting date-bounded overrides before the weekly schedule. The second
// return is false when the business is closed that day.
func (t *Tenant) HoursOn(date time.Time) (DayHours, bool) {
	day := date.Format("2006-01-02")
	for _, ov := range t.Overrides {
		if day < ov.From || day > ov.To {
			continue
		}
		if ov.Closed {
			return DayHours{}, false
		}
		if ov.Hours != nil {
			return *ov.Hours, true
		}
	}
	hours, ok := t.Schedule[date.Weekday()]
	return hours, ok
}

// WithinHours reports whether the window [start, start+duration) fits the
// tenant's opening hours on start's date, including break windows. The
// returned reason is empty when the window fits.
func (t *Tenant) WithinHours(start time.Time, duration time.Duration) (bool, string) {
	hours, open := t.HoursOn(start)
	if !open {
		return false, "closed"
	}

	openMin, err := minuteOfDay(hours.Open)
	if err != nil {
		return false, "closed"
	}
	closeMin, err := minuteOfDay(hours.Close)
	if err != nil {
		return false, "closed"
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + int(duration.Minutes())
	if startMin < openMin || endMin > closeMin {
		return false, "outside_hours"
	}

	if hours.BreakStart != "" && hours.BreakEnd != "" {
		bStart, err1 := minuteOfDay(hours.BreakStart)
		bEnd, err2 := minuteOfDay(hours.BreakEnd)
		if err1 == nil && err2 == nil && startMin < bEnd && endMin > bStart {
			return false, "break"
		}
	}

	return true, ""
}

// OpenWindowsOn returns the bookable minute ranges for a date, split around
// the break window. Used by the availability search to enumerate candidate
// slots.
func (t *Tenant) OpenWindowsOn(date time.Time) [][2]int {
	hours, open := t.HoursOn(date)
	if !open {
		return nil
	}
	openMin, err1 := minuteOfDay(hours.Open)
	closeMin, err2 := minuteOfDay(hours.Close)
	if err1 != nil || err2 != nil || closeMin <= openMin {
		return nil
	}

	if hours.BreakStart != "" && hours.BreakEnd != "" {
		bStart, err1 := minuteOfDay(hours.BreakStart)
		bEnd, err2 := minuteOfDay(hours.BreakEnd)
		if err1 == nil && err2 == nil && bStart > openMin && bEnd < closeMin {
			return [][2]int{{openMin, bStart}, {bEnd, closeMin}}
		}
	}
	return [][2]int{{openMin, closeMin}}
}

func minuteOfDay(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("tenant: invalid time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("tenant: invalid time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("tenant: invalid time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("tenant: invalid time %q", s)
	}
	return hour*60 + minute, nil
}
