// internal/service/overlap_test.go
package service

import (
	"errors"
	"testing"
	"time"

	"team-calendar/internal/models"
)

func utcRange(startDay, endDay int) models.DateRange {
	return models.DateRange{
		Start: time.Date(2024, time.June, startDay, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.June, endDay, 23, 0, 0, 0, time.UTC),
	}
}

func TestCheckDaysOffOverlap(t *testing.T) {
	existing := []models.DateRange{utcRange(4, 5), utcRange(10, 10)}

	cases := []struct {
		name    string
		r       models.DateRange
		overlap bool
	}{
		{"before all", utcRange(1, 2), false},
		{"between", utcRange(7, 8), false},
		{"after all", utcRange(12, 14), false},
		{"touches start", utcRange(3, 4), true},
		{"inside", utcRange(5, 5), true},
		{"spans existing", utcRange(9, 11), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkDaysOffOverlap(existing, tc.r.Start, tc.r.End)
			if tc.overlap && !errors.Is(err, ErrOverlappingDaysOff) {
				t.Fatalf("expected overlap error, got %v", err)
			}
			if !tc.overlap && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckDaysOffOverlapIsValidation(t *testing.T) {
	err := checkDaysOffOverlap([]models.DateRange{utcRange(4, 5)}, utcRange(5, 6).Start, utcRange(5, 6).End)
	if !IsValidation(err) {
		t.Fatalf("overlap error should classify as validation, got %v", err)
	}
}

func TestMergeExactRangesOnlyAppendsMissing(t *testing.T) {
	original := []models.DateRange{utcRange(4, 5)}
	additional := []models.DateRange{
		utcRange(4, 5),  // already present, skipped
		utcRange(10, 10),
	}

	merged := mergeExactRanges(original, additional)
	if len(merged) != 2 {
		t.Fatalf("merged = %d ranges, want 2", len(merged))
	}

	// A range overlapping but not exactly equal is still appended: the
	// merge de-duplicates, it never widens.
	merged = mergeExactRanges(merged, []models.DateRange{utcRange(4, 6)})
	if len(merged) != 3 {
		t.Fatalf("merged = %d ranges, want 3", len(merged))
	}
}

func TestMergeExactRangesDoesNotMutateOriginal(t *testing.T) {
	original := []models.DateRange{utcRange(4, 5)}
	_ = mergeExactRanges(original, []models.DateRange{utcRange(10, 10)})
	if len(original) != 1 {
		t.Fatalf("original mutated to %d ranges", len(original))
	}
}
