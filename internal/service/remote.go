// internal/service/remote.go
package service

import (
	"fmt"
	"sort"
	"time"

	"team-calendar/internal/models"
	"team-calendar/internal/repository"
	"team-calendar/pkg/dateutil"
	"team-calendar/pkg/worktrack"

	"github.com/sirupsen/logrus"
)

const remoteColor = "#7E57C2"

// RemoteService owns remote-work events. They live in the same monthly
// document buckets as training events but are grouped per day with member
// icons, like days off.
type RemoteService struct {
	docs   repository.DocumentStore
	work   worktrack.Client
	logger *logrus.Logger

	team    worktrack.TeamContext
	hostURL string

	iterations         []models.Iteration
	eventMap           map[string]*models.CalendarEvent
	groupedEventMap    map[string]*models.GroupedEvent
	fetchedCollections map[string]bool
	summary            []models.CategorySummary
}

func NewRemoteService(docs repository.DocumentStore, work worktrack.Client) *RemoteService {
	return &RemoteService{
		docs:   docs,
		work:   work,
		logger: newServiceLogger(),
	}
}

// Initialize resets all per-team state and warms the iteration cache.
func (s *RemoteService) Initialize(team worktrack.TeamContext, hostURL string) error {
	s.team = team
	s.hostURL = hostURL
	s.eventMap = map[string]*models.CalendarEvent{}
	s.groupedEventMap = map[string]*models.GroupedEvent{}
	s.fetchedCollections = map[string]bool{}
	s.summary = nil
	s.iterations = nil

	_, err := s.fetchIterations()
	return err
}

func (s *RemoteService) fetchIterations() ([]models.Iteration, error) {
	if len(s.iterations) > 0 {
		return s.iterations, nil
	}
	iterations, err := s.work.GetTeamIterations(s.team)
	if err != nil {
		return nil, fmt.Errorf("fetch iterations: %w", err)
	}
	s.iterations = iterations
	return iterations, nil
}

// GetIterationForDate returns the iteration containing both instants.
func (s *RemoteService) GetIterationForDate(startDate, endDate time.Time) *models.Iteration {
	utcStart := dateutil.ShiftToUTC(startDate)
	utcEnd := dateutil.ShiftToUTC(endDate)
	for i := range s.iterations {
		if s.iterations[i].Contains(utcStart, utcEnd) {
			return &s.iterations[i]
		}
	}
	return nil
}

// AddEvent persists a new remote-work event, then records it in the event
// map and the grouped day index.
func (s *RemoteService) AddEvent(startDate, endDate time.Time, halfDay models.HalfDay, member models.Member) (*models.CalendarEvent, error) {
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return nil, err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)

	event := &models.CalendarEvent{
		Category:        models.CategoryRemote,
		DisplayCategory: string(models.CategoryRemote),
		Title:           string(models.CategoryRemote),
		StartDate:       dateutil.ShiftToUTC(startDate),
		EndDate:         dateutil.ShiftToUTC(endDate),
		HalfDay:         halfDay,
		Member:          &member,
	}

	created, err := s.docs.CreateDocument(monthCollection(s.team.TeamID, startDate), event)
	if err != nil {
		return nil, fmt.Errorf("create remote event: %w", err)
	}

	s.eventMap[created.ID] = created
	upsertGroupedIcon(s.groupedEventMap, string(models.CategoryRemote),
		utcDayKey(created.StartDate), created, avatarURL(s.hostURL, member.ID))

	s.logger.WithFields(logrus.Fields{
		"event_id": created.ID,
		"member":   member.ID,
		"start":    dateutil.DayKey(startDate),
	}).Info("Remote event created")
	return created, nil
}

// UpdateEvent edits a remote event, moving its document across month
// buckets when the start month changes.
func (s *RemoteService) UpdateEvent(id string, startDate, endDate time.Time, halfDay models.HalfDay, member models.Member) (*models.CalendarEvent, error) {
	old, ok := s.eventMap[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return nil, err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)

	oldDateKey := utcDayKey(old.StartDate)
	oldCollection := monthCollection(s.team.TeamID, dateutil.ShiftToLocal(old.StartDate))
	newCollection := monthCollection(s.team.TeamID, startDate)

	updated := *old
	updated.StartDate = dateutil.ShiftToUTC(startDate)
	updated.EndDate = dateutil.ShiftToUTC(endDate)
	updated.HalfDay = halfDay
	updated.Member = &member
	updated.Icons = nil

	var saved *models.CalendarEvent
	var err error
	if oldCollection == newCollection {
		saved, err = s.docs.UpdateDocument(newCollection, &updated)
		if err != nil {
			return nil, fmt.Errorf("update remote event: %w", err)
		}
	} else {
		if err = s.docs.DeleteDocument(oldCollection, old.ID); err != nil {
			return nil, fmt.Errorf("move remote event out of %s: %w", oldCollection, err)
		}
		saved, err = s.docs.CreateDocument(newCollection, &updated)
		if err != nil {
			delete(s.eventMap, id)
			return nil, fmt.Errorf("move remote event into %s (event lost from both buckets): %w", newCollection, err)
		}
	}

	delete(s.eventMap, id)
	s.eventMap[saved.ID] = saved

	// Stale grouped entry under the old date key must go before the new
	// one is inserted.
	s.removeGroupedIcon(oldDateKey, id)
	upsertGroupedIcon(s.groupedEventMap, string(models.CategoryRemote),
		utcDayKey(saved.StartDate), saved, avatarURL(s.hostURL, member.ID))
	return saved, nil
}

// DeleteEvent removes a remote event from the document store, the event
// map and the grouped index. Leaving it in any one of them would leave
// phantom icons behind.
func (s *RemoteService) DeleteEvent(id string) error {
	event, ok := s.eventMap[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	delete(s.eventMap, id)
	s.removeGroupedIcon(utcDayKey(event.StartDate), id)

	collection := monthCollection(s.team.TeamID, dateutil.ShiftToLocal(event.StartDate))
	if err := s.docs.DeleteDocument(collection, id); err != nil {
		return fmt.Errorf("delete remote event: %w", err)
	}

	// Recompute the summary so the deleted member's count does not linger.
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	if _, err := s.GetEvents(monthStart, monthStart.AddDate(0, 1, -1)); err != nil {
		s.logger.WithError(err).Error("Failed to refresh remote summary after delete")
	}
	return nil
}

func (s *RemoteService) removeGroupedIcon(dateKey, eventID string) {
	entry := s.groupedEventMap[dateKey]
	if entry == nil {
		return
	}
	icons := entry.Icons[:0]
	for _, icon := range entry.Icons {
		if icon.LinkedEvent == nil || icon.LinkedEvent.ID != eventID {
			icons = append(icons, icon)
		}
	}
	entry.Icons = icons
	if len(entry.Icons) == 0 {
		delete(s.groupedEventMap, dateKey)
	}
}

// FetchEvents loads unfetched month buckets into the event map and returns
// the whole map.
func (s *RemoteService) FetchEvents(start, end time.Time) (map[string]*models.CalendarEvent, error) {
	var toFetch []string
	for key := range dateutil.MonthKeysInRange(start, end) {
		name := s.team.TeamID + "." + key
		if !s.fetchedCollections[name] {
			toFetch = append(toFetch, name)
			s.fetchedCollections[name] = true
		}
	}

	collections, err := s.docs.QueryCollectionsByName(toFetch)
	if err != nil {
		for _, name := range toFetch {
			delete(s.fetchedCollections, name)
		}
		return nil, fmt.Errorf("fetch remote collections: %w", err)
	}

	for _, collection := range collections {
		for _, doc := range collection.Documents {
			if doc.Category != models.CategoryRemote {
				continue
			}
			s.eventMap[doc.ID] = doc
		}
	}
	return s.eventMap, nil
}

// GetEvents rebuilds the grouped day index and the per-member summary for
// the window from scratch, then atomically swaps them in.
func (s *RemoteService) GetEvents(start, end time.Time) ([]*models.CalendarEvent, error) {
	if _, err := s.FetchEvents(start, end); err != nil {
		return nil, err
	}

	winStart := dateutil.Midnight(start)
	winEnd := dateutil.Midnight(end)

	grouped := map[string]*models.GroupedEvent{}
	acc := newSummaryAccumulator()
	var events []*models.CalendarEvent

	for _, event := range s.eventMap {
		if event.Member == nil || event.Member.DisplayName == "" {
			s.logger.WithField("event_id", event.ID).Warn("Remote event without member, skipping")
			continue
		}

		localStart := dateutil.ShiftToLocal(event.StartDate)
		localEnd := dateutil.ShiftToLocal(event.EndDate)
		// The window end is a midnight; the day it names is included up to
		// the following midnight, exclusive.
		if localEnd.Before(winStart) || !localStart.Before(winEnd.AddDate(0, 0, 1)) {
			continue
		}

		events = append(events, event)

		dateKey := utcDayKey(event.StartDate)
		upsertGroupedIcon(grouped, string(models.CategoryRemote), dateKey, event,
			avatarURL(s.hostURL, event.Member.ID))

		acc.add(event.Member.DisplayName, models.CategorySummary{
			Title: event.Member.DisplayName,
			Color: remoteColor,
		}, dateKey, halfDayWeight(event.HalfDay))
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})

	s.groupedEventMap = grouped
	s.summary = acc.list(func(count float64) string { return countSubtitle(count, "remote") })
	return events, nil
}

// GetEventsFunc is the callback-style adapter used by the render surface.
func (s *RemoteService) GetEventsFunc(start, end time.Time, onSuccess func([]*models.CalendarEvent), onError func(error)) {
	events, err := s.GetEvents(start, end)
	if err != nil {
		onError(err)
		return
	}
	onSuccess(events)
}

// GetGroupedEventForDate returns the grouped day entry for a wall-clock
// date, if any.
func (s *RemoteService) GetGroupedEventForDate(date time.Time) *models.GroupedEvent {
	return s.groupedEventMap[utcDayKey(dateutil.ShiftToUTC(date))]
}

// Summary returns the per-member remote totals from the last GetEvents.
func (s *RemoteService) Summary() []models.CategorySummary {
	return s.summary
}
