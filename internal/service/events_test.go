// internal/service/events_test.go
package service

import (
	"testing"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"
)

func TestNormalizeEventTimes(t *testing.T) {
	day := localDate(2024, time.June, 3)

	cases := []struct {
		halfDay            models.HalfDay
		wantStart, wantEnd int
	}{
		{models.HalfDayNone, 0, fullDayEndHour},
		{models.HalfDayAM, amStartHour, amEndHour},
		{models.HalfDayPM, pmStartHour, pmEndHour},
	}
	for _, tc := range cases {
		start, end := normalizeEventTimes(day, day, tc.halfDay)
		if start.Hour() != tc.wantStart || end.Hour() != tc.wantEnd {
			t.Errorf("normalize(%q) = %d-%d, want %d-%d",
				tc.halfDay, start.Hour(), end.Hour(), tc.wantStart, tc.wantEnd)
		}
	}
}

func TestDetectHalfDayRoundTrip(t *testing.T) {
	day := localDate(2024, time.June, 3)

	for _, halfDay := range []models.HalfDay{models.HalfDayNone, models.HalfDayAM, models.HalfDayPM} {
		start, end := normalizeEventTimes(day, day, halfDay)
		if got := detectHalfDay(start, end); got != halfDay {
			t.Errorf("detectHalfDay after normalize(%q) = %q", halfDay, got)
		}
	}
}

func TestDetectHalfDayMultiDayIsFullDay(t *testing.T) {
	start := time.Date(2024, time.June, 3, amStartHour, 0, 0, 0, time.Local)
	end := time.Date(2024, time.June, 4, amEndHour, 0, 0, 0, time.Local)
	if got := detectHalfDay(start, end); got != models.HalfDayNone {
		t.Fatalf("multi-day range detected as %q", got)
	}
}

func TestUTCDayKeyMatchesShiftedStoredDates(t *testing.T) {
	// A stored instant is the local wall clock re-labelled as UTC, so the
	// grouping key must match the local calendar day regardless of zone.
	local := time.Date(2024, time.June, 3, 14, 0, 0, 0, time.Local)
	stored := dateutil.ShiftToUTC(local)

	if got := utcDayKey(stored); got != "2024-06-03" {
		t.Fatalf("utcDayKey = %q, want 2024-06-03", got)
	}
}

func TestMonthCollectionName(t *testing.T) {
	if got := monthCollection("team1", localDate(2024, time.June, 3)); got != "team1.06-2024" {
		t.Fatalf("monthCollection = %q", got)
	}
}
