package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"lunedi":    time.Monday,
	"lunedì":    time.Monday,
	"martedi":   time.Tuesday,
	"martedì":   time.Tuesday,
	"mercoledi": time.Wednesday,
	"mercoledì": time.Wednesday,
	"giovedi":   time.Thursday,
	"giovedì":   time.Thursday,
	"venerdi":   time.Friday,
	"venerdì":   time.Friday,
	"sabato":    time.Saturday,
	"domenica":  time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
	clockRe     = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?$`)
)

// ResolveDate turns a spoken date reference into "YYYY-MM-DD" relative to
// now, which must already be in the tenant's timezone. Weekday names resolve
// to the next occurrence, never today.
func ResolveDate(ref string, now time.Time) (string, bool) {
	ref = normalize(ref)
	switch ref {
	case "":
		return "", false
	case "oggi", "today":
		return now.Format("2006-01-02"), true
	case "domani", "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case "dopodomani", "day after tomorrow":
		return now.AddDate(0, 0, 2).Format("2006-01-02"), true
	}

	if wd, ok := weekdayNames[ref]; ok {
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format("2006-01-02"), true
	}

	if isoDateRe.MatchString(ref) {
		if _, err := time.Parse("2006-01-02", ref); err == nil {
			return ref, true
		}
		return "", false
	}

	// Italian convention: day first.
	if m := slashDateRe.FindStringSubmatch(ref); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		candidate := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		parsed, err := time.ParseInLocation("2006-01-02", candidate, now.Location())
		if err != nil {
			return "", false
		}
		// Without an explicit year, a date already gone means next year.
		if m[3] == "" && parsed.Before(now.Truncate(24*time.Hour)) {
			parsed = parsed.AddDate(1, 0, 0)
		}
		return parsed.Format("2006-01-02"), true
	}

	return "", false
}

// ResolveTime turns a spoken time reference into "HH:MM". Bare hours 1-7
// without am/pm resolve to the afternoon ("alle 3" means 15:00).
func ResolveTime(ref string) (string, bool) {
	ref = normalize(ref)
	ref = strings.TrimPrefix(ref, "alle ")
	ref = strings.TrimPrefix(ref, "at ")

	m := clockRe.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
