// internal/models/calendar_event.go
package models

import "time"

// Category is the closed set of event kinds the calendar aggregates.
type Category string

const (
	CategoryDaysOff     Category = "DaysOff"
	CategoryTraining    Category = "Training"
	CategoryRemote      Category = "Remote"
	CategoryTeamDaysOff Category = "TeamDaysOff"
)

// HalfDay marks an event covering only the morning or afternoon block.
type HalfDay string

const (
	HalfDayNone HalfDay = ""
	HalfDayAM   HalfDay = "AM"
	HalfDayPM   HalfDay = "PM"
)

// Member identifies the owner of an event. Everyone is set for team-wide
// entries instead of comparing display names against a magic constant.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Everyone    bool   `json:"everyone,omitempty"`
}

// EveryoneMember returns the team-wide pseudo-member for team days off.
func EveryoneMember(teamID string) Member {
	return Member{ID: teamID, DisplayName: "Everyone", Everyone: true}
}

// CalendarEvent is the canonical unit stored in the document store and
// produced for the render surface. StartDate/EndDate are kept in UTC.
type CalendarEvent struct {
	ID              string      `json:"id,omitempty"`
	ETag            int         `json:"__etag,omitempty"`
	Category        Category    `json:"category"`
	DisplayCategory string      `json:"displayCategory,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"`
	HalfDay         HalfDay     `json:"halfDay,omitempty"`
	IterationID     string      `json:"iterationId,omitempty"`
	Member          *Member     `json:"member,omitempty"`
	Icons           []EventIcon `json:"icons,omitempty"`
}

// IsHalfDay reports whether the event covers only an AM or PM block.
func (e *CalendarEvent) IsHalfDay() bool {
	return e.HalfDay == HalfDayAM || e.HalfDay == HalfDayPM
}

// EventIcon is an avatar shown on a calendar cell, linked back to the event
// it represents so the cell can open it for edit or delete.
type EventIcon struct {
	Src         string         `json:"src"`
	LinkedEvent *CalendarEvent `json:"linkedEvent,omitempty"`
}

// GroupedEvent is the per-calendar-day aggregation unit. It is ephemeral:
// rebuilt from scratch on every query, never persisted.
type GroupedEvent struct {
	ID      string      `json:"id"`
	DateKey string      `json:"dateKey"`
	Member  *Member     `json:"member,omitempty"`
	Icons   []EventIcon `json:"icons"`
	HalfDay HalfDay     `json:"halfDay,omitempty"`
}

// GroupedEventTitle is the display category of grouped day events.
const GroupedEventTitle = "Grouped Event"
