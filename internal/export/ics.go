// internal/export/ics.go

// Package export renders calendar events as an iCalendar stream.
package export

import (
	"fmt"
	"io"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// Encode writes the events as a single VCALENDAR. Full-day events are
// emitted with an exclusive end at the next midnight; half-day events keep
// their clock times.
func Encode(w io.Writer, events []*models.CalendarEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//team-calendar//EN")

	now := time.Now().UTC()
	for _, event := range events {
		cal.Children = append(cal.Children, toVEvent(event, now))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toVEvent(event *models.CalendarEvent, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)

	uid := event.ID
	if uid == "" {
		uid = uuid.NewString()
	}
	ve.Props.SetText(ical.PropUID, uid+"@team-calendar")
	ve.Props.SetText(ical.PropSummary, summaryFor(event))
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)

	start := dateutil.ShiftToLocal(event.StartDate)
	end := dateutil.ShiftToLocal(event.EndDate)
	if event.IsHalfDay() {
		ve.Props.SetDateTime(ical.PropDateTimeStart, start)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, end)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, dateutil.Midnight(start))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, dateutil.Midnight(end).AddDate(0, 0, 1))
	}
	return ve
}

func summaryFor(event *models.CalendarEvent) string {
	title := event.Title
	if title == "" {
		title = event.DisplayCategory
	}
	if event.Member != nil && event.Member.DisplayName != "" && event.Member.DisplayName != title {
		return title + " (" + event.Member.DisplayName + ")"
	}
	return title
}
