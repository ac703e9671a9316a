// internal/service/events.go
package service

import (
	"fmt"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"

	"github.com/sirupsen/logrus"
)

// Canonical clock times. AM is 09:00-12:00 everywhere; an earlier revision
// used 08:00 on one update path, which made half-day detection miss.
const (
	amStartHour = 9
	amEndHour   = 12
	pmStartHour = 14
	pmEndHour   = 18
	// Full-day events span 00:00-23:00; render-side consumers
	// exclusive-increment the end day.
	fullDayEndHour = 23
)

func newServiceLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}

// validateEventRange rejects inverted ranges and half-day events spanning
// more than one calendar day.
func validateEventRange(startDate, endDate time.Time, halfDay models.HalfDay) error {
	if endDate.Before(startDate) {
		return validationErrorf("end date %s is before start date %s",
			dateutil.DayKey(endDate), dateutil.DayKey(startDate))
	}
	if halfDay != models.HalfDayNone && dateutil.DayKey(startDate) != dateutil.DayKey(endDate) {
		return validationErrorf("half-day event spans multiple calendar days (%s to %s)",
			dateutil.DayKey(startDate), dateutil.DayKey(endDate))
	}
	return nil
}

// normalizeEventTimes applies the canonical clock times for the half-day
// tag, or the full-day 00:00-23:00 span.
func normalizeEventTimes(startDate, endDate time.Time, halfDay models.HalfDay) (time.Time, time.Time) {
	switch halfDay {
	case models.HalfDayAM:
		return atHour(startDate, amStartHour), atHour(endDate, amEndHour)
	case models.HalfDayPM:
		return atHour(startDate, pmStartHour), atHour(endDate, pmEndHour)
	default:
		return atHour(startDate, 0), atHour(endDate, fullDayEndHour)
	}
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// detectHalfDay recovers the half-day tag from a stored range's canonical
// clock times.
func detectHalfDay(localStart, localEnd time.Time) models.HalfDay {
	if dateutil.DayKey(localStart) != dateutil.DayKey(localEnd) {
		return models.HalfDayNone
	}
	switch localStart.Hour() {
	case amStartHour:
		return models.HalfDayAM
	case pmStartHour:
		return models.HalfDayPM
	}
	return models.HalfDayNone
}

func halfDayWeight(halfDay models.HalfDay) float64 {
	if halfDay == models.HalfDayNone {
		return 1
	}
	return 0.5
}

// utcDayKey derives the canonical grouping key: the UTC date of the stored
// start instant with its time of day zeroed. All three stores use this key.
func utcDayKey(t time.Time) string {
	return dateutil.DayKey(dateutil.Midnight(t.UTC()))
}

func avatarURL(hostURL, memberID string) string {
	return fmt.Sprintf("%s/_apis/GraphProfile/MemberAvatars/%s?size=small", hostURL, memberID)
}

func monthCollection(teamID string, t time.Time) string {
	return teamID + "." + dateutil.MonthKey(t)
}
