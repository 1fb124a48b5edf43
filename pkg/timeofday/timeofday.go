// Package timeofday provides arithmetic on local times-of-day and dates.
//
// Times are zero-padded "HH:MM" strings in 24-hour local time; dates are
// "YYYY-MM-DD". Because both formats are zero-padded, lexicographic comparison
// of the strings matches chronological order — the scheduling code relies on
// that. Day-crossing arithmetic is rejected, never wrapped.
package timeofday

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinutesPerDay is the number of minutes in a wrap-free day.
	MinutesPerDay = 24 * 60

	dateLayout = "2006-01-02"
)

// ─── Time-of-day ────────────────────────────────────────────

// Parse converts "HH:MM" to minutes since midnight.
func Parse(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("timeofday: invalid time %q, want HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("timeofday: invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("timeofday: time %q out of range", s)
	}
	return h*60 + m, nil
}

// Format converts minutes since midnight to "HH:MM".
// Minutes outside [0, MinutesPerDay) are a programming error upstream;
// Format clamps rather than wraps so bad values are visible in output.
func Format(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= MinutesPerDay {
		minutes = MinutesPerDay - 1
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Add returns t + delta minutes. Crossing midnight in either direction is an
// error: the plan model has no wrap-around days.
func Add(t string, delta int) (string, error) {
	m, err := Parse(t)
	if err != nil {
		return "", err
	}
	m += delta
	if m < 0 || m >= MinutesPerDay {
		return "", fmt.Errorf("timeofday: %s %+d min crosses midnight", t, delta)
	}
	return Format(m), nil
}

// Diff returns end − start in minutes for two times on the same day.
// Negative results are allowed; callers decide whether that is an error.
func Diff(start, end string) (int, error) {
	s, err := Parse(start)
	if err != nil {
		return 0, err
	}
	e, err := Parse(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// Before reports whether a is strictly earlier than b. Valid "HH:MM" strings
// compare correctly byte-wise.
func Before(a, b string) bool {
	return a < b
}

// Max returns the later of two "HH:MM" strings.
func Max(a, b string) string {
	if a < b {
		return b
	}
	return a
}

// IsValid reports whether s parses as "HH:MM".
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// ─── Dates ──────────────────────────────────────────────────

// ParseDate converts "YYYY-MM-DD" to a time.Time at local midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeofday: invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate converts a time.Time to "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Weekday returns the lowercase English weekday name ("sunday".."saturday")
// for a "YYYY-MM-DD" date. POI opening hours are keyed by these names.
func Weekday(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return strings.ToLower(d.Weekday().String()), nil
}

// AddDays returns date + n days as "YYYY-MM-DD".
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(d.AddDate(0, 0, n)), nil
}

// DaysBetween returns the number of itinerary days for a [start, end] date
// range, inclusive of both endpoints. A one-day trip (start == end) is 1.
func DaysBetween(start, end string) (int, error) {
	s, err := ParseDate(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return 0, err
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 0, fmt.Errorf("timeofday: date range %s..%s is empty", start, end)
	}
	return days, nil
}
