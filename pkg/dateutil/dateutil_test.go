package dateutil

import (
	"testing"
	"time"
)

func TestShiftRoundTrip(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 6, 3, 9, 30, 0, 0, time.Local),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2023, 12, 31, 23, 0, 0, 0, time.Local),
	}
	for _, d := range dates {
		got := ShiftToLocal(ShiftToUTC(d))
		if !got.Equal(d) {
			t.Errorf("round trip of %v produced %v", d, got)
		}
	}
}

func TestShiftToUTCKeepsWallClock(t *testing.T) {
	d := time.Date(2024, 6, 3, 14, 0, 0, 0, time.Local)
	u := ShiftToUTC(d)
	if u.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", u.Location())
	}
	if u.Hour() != 14 || u.Day() != 3 {
		t.Errorf("wall clock changed: %v", u)
	}
}

func TestDatesInRange(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 2, 0, 0, 0, time.UTC)

	var got []string
	for d := range DatesInRange(start, end) {
		got = append(got, DayKey(d))
		if d.Hour() != 0 {
			t.Errorf("expected midnight, got %v", d)
		}
	}

	want := []string{"2024-06-01", "2024-06-02", "2024-06-03"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDatesInRangeRestartable(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	seq := DatesInRange(start, end)
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 5 || second != 5 {
		t.Errorf("expected 5 days on both passes, got %d and %d", first, second)
	}
}

func TestMonthKeysInRange(t *testing.T) {
	start := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	var got []string
	for k := range MonthKeysInRange(start, end) {
		got = append(got, k)
	}

	want := []string{"11-2024", "12-2024", "01-2025"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("month %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestWorkingDays(t *testing.T) {
	// 2024-06-01 is a Saturday; 06-01..06-14 holds exactly 10 weekdays.
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := WorkingDays(start, end); got != 10 {
		t.Errorf("expected 10 working days, got %d", got)
	}

	// Single weekend day.
	sat := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	if got := WorkingDays(sat, sat); got != 0 {
		t.Errorf("expected 0 working days, got %d", got)
	}
}
