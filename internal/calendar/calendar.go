// Package calendar provides the business-day axis used for reindexing.
// Weekends are skipped; holidays are not modelled.
package calendar

import "time"

// DateLayout is the storage and display format of calendar dates
const DateLayout = "2006-01-02"

// Truncate drops the time of day and normalizes to UTC midnight
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on a weekday
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Range returns every business day in [start, end], inclusive
func Range(start, end time.Time) []time.Time {
	start, end = Truncate(start), Truncate(end)
	if end.Before(start) {
		return nil
	}

	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// AddBusinessDays moves n business days from t (n may be negative).
// A weekend start first counts the nearest business day in the direction of travel.
func AddBusinessDays(t time.Time, n int) time.Time {
	d := Truncate(t)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// Previous returns the latest business day on or before t
func Previous(t time.Time) time.Time {
	d := Truncate(t)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Index maps each date to its position in days
func Index(days []time.Time) map[time.Time]int {
	idx := make(map[time.Time]int, len(days))
	for i, d := range days {
		idx[d] = i
	}
	return idx
}

// Format renders a date with DateLayout
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// Parse reads a date in DateLayout
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
