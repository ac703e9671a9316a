// internal/models/capacity.go
package models

import "time"

// DateRange is a days-off range as the work-tracking service stores it.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Activity is one line of a member's per-sprint capacity record.
type Activity struct {
	Name           string  `json:"name"`
	CapacityPerDay float64 `json:"capacityPerDay"`
}

// MemberCapacity mirrors the external service's per-member capacity record.
type MemberCapacity struct {
	TeamMember Member      `json:"teamMember"`
	Activities []Activity  `json:"activities"`
	DaysOff    []DateRange `json:"daysOff"`
}

// CapacityPatch replaces a member's whole capacity record. The service has
// no partial append API, so callers merge locally before writing.
type CapacityPatch struct {
	Activities []Activity  `json:"activities"`
	DaysOff    []DateRange `json:"daysOff"`
}

// TeamDaysOff is the team-wide days-off record for one iteration.
type TeamDaysOff struct {
	DaysOff []DateRange `json:"daysOff"`
}

// TeamDaysOffPatch replaces the team's whole days-off list.
type TeamDaysOffPatch struct {
	DaysOff []DateRange `json:"daysOff"`
}

// Iteration is a sprint held by the work-tracking service.
type Iteration struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	StartDate  time.Time `json:"startDate"`
	FinishDate time.Time `json:"finishDate"`
}

// Contains reports whether both instants fall inside the iteration window.
func (i *Iteration) Contains(start, end time.Time) bool {
	return !start.Before(i.StartDate) && !start.After(i.FinishDate) &&
		!end.Before(i.StartDate) && !end.After(i.FinishDate)
}
