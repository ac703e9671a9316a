package dateutil

import (
	"iter"
	"time"
)

// ShiftToUTC re-labels a wall-clock reading as UTC: the returned time has the
// same year/month/day/clock fields but carries the UTC location. Inverse of
// ShiftToLocal.
func ShiftToUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ShiftToLocal re-labels the UTC fields of t as a local wall-clock reading.
func ShiftToLocal(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.Local)
}

// Midnight truncates t to 00:00:00 in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DatesInRange yields one midnight per calendar day from start to end
// inclusive. The sequence is finite and restartable.
func DatesInRange(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		last := Midnight(end)
		for d := Midnight(start); !d.After(last); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// MonthKeysInRange yields the month bucket key of every calendar month from
// start to end inclusive.
func MonthKeysInRange(start, end time.Time) iter.Seq[string] {
	return func(yield func(string) bool) {
		last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
		for d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()); !d.After(last); d = d.AddDate(0, 1, 0) {
			if !yield(MonthKey(d)) {
				return
			}
		}
	}
}

// MonthKey formats the month bucket key used for collection names.
func MonthKey(t time.Time) string {
	return t.Format("01-2006")
}

// DayKey formats the canonical per-day grouping key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsWorkingDay reports whether t falls Monday through Friday.
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WorkingDays counts the Monday-Friday calendar days from start to end
// inclusive.
func WorkingDays(start, end time.Time) int {
	count := 0
	for d := range DatesInRange(start, end) {
		if IsWorkingDay(d) {
			count++
		}
	}
	return count
}
