// internal/service/overlap.go
package service

import (
	"fmt"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"
)

// checkDaysOffOverlap rejects a new range that intersects any existing
// range. Ranges fully outside the new one are filtered first; whatever
// remains satisfies start <= other.end && end >= other.start and is an
// overlap. Existing entries are never merged here.
func checkDaysOffOverlap(existing []models.DateRange, start, end time.Time) error {
	for _, r := range existing {
		if r.End.Before(start) || r.Start.After(end) {
			continue
		}
		return fmt.Errorf("%w: %s..%s intersects %s..%s",
			ErrOverlappingDaysOff,
			dateutil.DayKey(start), dateutil.DayKey(end),
			dateutil.DayKey(r.Start), dateutil.DayKey(r.End))
	}
	return nil
}

// mergeExactRanges appends the additional ranges that are not already
// present, compared by exact start and end equality. Interval overlap is
// deliberately not considered: the training auto-sync only de-duplicates,
// it never widens or removes existing days-off entries.
func mergeExactRanges(original, additional []models.DateRange) []models.DateRange {
	merged := make([]models.DateRange, len(original))
	copy(merged, original)

	for _, add := range additional {
		exists := false
		for _, r := range merged {
			if r.Start.Equal(add.Start) && r.End.Equal(add.End) {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, add)
		}
	}
	return merged
}
