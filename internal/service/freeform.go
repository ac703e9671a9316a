// internal/service/freeform.go
package service

import (
	"fmt"
	"sort"
	"time"

	"team-calendar/internal/models"
	"team-calendar/internal/repository"
	"team-calendar/pkg/dateutil"

	"github.com/sirupsen/logrus"
)

// legacyWipeMonths bounds how far back ClearStoredEvents walks.
const legacyWipeMonths = 24

// FreeFormService owns the training and free-form events persisted in the
// document store, bucketed per team and month. Remote events share the same
// buckets but belong to RemoteService and are skipped here.
type FreeFormService struct {
	docs   repository.DocumentStore
	logger *logrus.Logger

	teamID  string
	hostURL string
	members []models.Member

	eventMap           map[string]*models.CalendarEvent
	fetchedCollections map[string]bool
	categories         map[string]bool
	summary            []models.CategorySummary
}

func NewFreeFormService(docs repository.DocumentStore) *FreeFormService {
	return &FreeFormService{
		docs:   docs,
		logger: newServiceLogger(),
	}
}

// Initialize resets all per-team state. Must be called before any other
// operation and again on every team switch; it is not safe to call while a
// fetch for the same instance is in flight.
func (s *FreeFormService) Initialize(teamID, hostURL string) {
	s.teamID = teamID
	s.hostURL = hostURL
	s.eventMap = map[string]*models.CalendarEvent{}
	s.fetchedCollections = map[string]bool{}
	s.categories = map[string]bool{}
	s.summary = nil
}

// SetMembers installs the team directory used to resolve display names.
func (s *FreeFormService) SetMembers(members []models.Member) {
	s.members = members
}

// Categories returns the category tags seen in fetched events.
func (s *FreeFormService) Categories() []string {
	result := make([]string, 0, len(s.categories))
	for c := range s.categories {
		result = append(result, c)
	}
	sort.Strings(result)
	return result
}

// AddEvent validates, normalizes and persists a new training event. The
// in-memory map is only updated once the document store accepts the write.
func (s *FreeFormService) AddEvent(title, description string, startDate, endDate time.Time, halfDay models.HalfDay, memberID string) (*models.CalendarEvent, error) {
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return nil, err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)

	member := &models.Member{ID: memberID, DisplayName: s.memberDisplayName(memberID)}
	event := &models.CalendarEvent{
		Category:        models.CategoryTraining,
		DisplayCategory: string(models.CategoryTraining),
		Title:           title,
		Description:     description,
		StartDate:       dateutil.ShiftToUTC(startDate),
		EndDate:         dateutil.ShiftToUTC(endDate),
		HalfDay:         halfDay,
		Member:          member,
	}
	linked := *event
	event.Icons = []models.EventIcon{{Src: avatarURL(s.hostURL, memberID), LinkedEvent: &linked}}

	created, err := s.docs.CreateDocument(monthCollection(s.teamID, startDate), event)
	if err != nil {
		return nil, fmt.Errorf("create training event: %w", err)
	}

	s.eventMap[created.ID] = created
	s.categories[string(created.Category)] = true

	s.logger.WithFields(logrus.Fields{
		"event_id": created.ID,
		"member":   memberID,
		"start":    dateutil.DayKey(startDate),
	}).Info("Training event created")
	return created, nil
}

// UpdateEvent edits an event in place, or moves its document across month
// buckets with delete-then-create when the start month changes. There is no
// atomic move primitive: if the create fails after the delete succeeded the
// event is lost from both buckets.
func (s *FreeFormService) UpdateEvent(id, title, description string, startDate, endDate time.Time, halfDay models.HalfDay) (*models.CalendarEvent, error) {
	old, ok := s.eventMap[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return nil, err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)

	updated := *old
	updated.Title = title
	updated.Description = description
	updated.StartDate = dateutil.ShiftToUTC(startDate)
	updated.EndDate = dateutil.ShiftToUTC(endDate)
	updated.HalfDay = halfDay

	oldCollection := monthCollection(s.teamID, dateutil.ShiftToLocal(old.StartDate))
	newCollection := monthCollection(s.teamID, startDate)

	var saved *models.CalendarEvent
	var err error
	if oldCollection == newCollection {
		saved, err = s.docs.UpdateDocument(newCollection, &updated)
		if err != nil {
			return nil, fmt.Errorf("update training event: %w", err)
		}
	} else {
		if err = s.docs.DeleteDocument(oldCollection, old.ID); err != nil {
			return nil, fmt.Errorf("move training event out of %s: %w", oldCollection, err)
		}
		saved, err = s.docs.CreateDocument(newCollection, &updated)
		if err != nil {
			delete(s.eventMap, id)
			return nil, fmt.Errorf("move training event into %s (event lost from both buckets): %w", newCollection, err)
		}
	}

	delete(s.eventMap, id)
	s.eventMap[saved.ID] = saved
	return saved, nil
}

// DeleteEvent removes an event from the document store and every in-memory
// index.
func (s *FreeFormService) DeleteEvent(id string) error {
	event, ok := s.eventMap[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	delete(s.eventMap, id)

	collection := monthCollection(s.teamID, dateutil.ShiftToLocal(event.StartDate))
	if err := s.docs.DeleteDocument(collection, id); err != nil {
		return fmt.Errorf("delete training event: %w", err)
	}
	return nil
}

// FetchEvents loads the month buckets overlapping [start, end] that have
// not been fetched for this team yet and merges them into the in-memory
// map. It returns the whole map, not just the requested window.
func (s *FreeFormService) FetchEvents(start, end time.Time) (map[string]*models.CalendarEvent, error) {
	var toFetch []string
	for key := range dateutil.MonthKeysInRange(start, end) {
		name := s.teamID + "." + key
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
		return nil, fmt.Errorf("fetch event collections: %w", err)
	}

	for _, collection := range collections {
		for _, doc := range collection.Documents {
			if doc.Category == models.CategoryRemote {
				continue
			}
			s.eventMap[doc.ID] = doc
			s.categories[string(doc.Category)] = true
		}
	}

	if !s.fetchedCollections[s.teamID] {
		if err := s.migrateLegacyCollection(); err != nil {
			return nil, err
		}
	}
	return s.eventMap, nil
}

// migrateLegacyCollection copies events from the pre-bucketing single
// collection into their monthly buckets, then deletes the legacy documents
// and the old categories collection. Individual failures are logged and
// skipped; the migration re-runs on the next fetch for whatever remains.
func (s *FreeFormService) migrateLegacyCollection() error {
	collections, err := s.docs.QueryCollectionsByName([]string{s.teamID})
	if err != nil {
		return fmt.Errorf("fetch legacy collection: %w", err)
	}
	s.fetchedCollections[s.teamID] = true

	for _, collection := range collections {
		for _, doc := range collection.Documents {
			if doc.Category == models.CategoryRemote {
				continue
			}
			s.eventMap[doc.ID] = doc

			target := monthCollection(s.teamID, dateutil.ShiftToLocal(doc.StartDate))
			if _, err := s.docs.CreateDocument(target, doc); err != nil {
				s.logger.WithError(err).WithField("event_id", doc.ID).Error("Failed to migrate legacy event")
				continue
			}
			if err := s.docs.DeleteDocument(s.teamID, doc.ID); err != nil {
				s.logger.WithError(err).WithField("event_id", doc.ID).Error("Failed to delete migrated legacy event")
			}
		}
	}

	categoriesCollection := s.teamID + "-categories"
	docs, err := s.docs.GetDocuments(categoriesCollection)
	if err != nil {
		s.logger.WithError(err).Debug("No legacy categories collection")
		return nil
	}
	for _, doc := range docs {
		if err := s.docs.DeleteDocument(categoriesCollection, doc.ID); err != nil {
			s.logger.WithError(err).WithField("doc_id", doc.ID).Error("Failed to delete legacy category")
		}
	}
	return nil
}

// GetEvents fetches the window's buckets, filters the events intersecting
// the window and rebuilds the category summary.
func (s *FreeFormService) GetEvents(start, end time.Time) ([]*models.CalendarEvent, error) {
	if _, err := s.FetchEvents(start, end); err != nil {
		return nil, err
	}

	winStart := dateutil.Midnight(start)
	winEnd := dateutil.Midnight(end)

	var events []*models.CalendarEvent
	acc := map[string]*models.CategorySummary{}
	for _, event := range s.eventMap {
		if event.Category == models.CategoryRemote {
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

		key := string(event.Category)
		if entry := acc[key]; entry != nil {
			entry.EventCount++
			entry.SubTitle = fmt.Sprintf("%d events", int(entry.EventCount))
		} else {
			acc[key] = &models.CategorySummary{
				Title:      key,
				SubTitle:   event.Title,
				EventCount: 1,
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})

	summary := make([]models.CategorySummary, 0, len(acc))
	for _, entry := range acc {
		summary = append(summary, *entry)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Title < summary[j].Title })
	s.summary = summary

	return events, nil
}

// GetEventsFunc is the callback-style adapter used by the render surface.
func (s *FreeFormService) GetEventsFunc(start, end time.Time, onSuccess func([]*models.CalendarEvent), onError func(error)) {
	events, err := s.GetEvents(start, end)
	if err != nil {
		onError(err)
		return
	}
	onSuccess(events)
}

// Summary returns the category totals from the last GetEvents call.
func (s *FreeFormService) Summary() []models.CategorySummary {
	return s.summary
}

// Events exposes the raw in-memory event map for the capacity reconciler.
func (s *FreeFormService) Events() map[string]*models.CalendarEvent {
	return s.eventMap
}

// ClearStoredEvents wipes the team's monthly buckets for the trailing two
// years plus the legacy categories collection. Missing collections are
// no-ops.
func (s *FreeFormService) ClearStoredEvents() error {
	now := time.Now()
	for i := 0; i < legacyWipeMonths; i++ {
		month := now.AddDate(0, -i, 0)
		collection := monthCollection(s.teamID, month)
		docs, err := s.docs.GetDocuments(collection)
		if err != nil {
			s.logger.WithError(err).WithField("collection", collection).Error("Failed to list collection for wipe")
			continue
		}
		for _, doc := range docs {
			if err := s.docs.DeleteDocument(collection, doc.ID); err != nil {
				s.logger.WithError(err).WithField("doc_id", doc.ID).Error("Failed to wipe document")
			}
		}
	}

	categoriesCollection := s.teamID + "-categories"
	docs, err := s.docs.GetDocuments(categoriesCollection)
	if err == nil {
		for _, doc := range docs {
			if err := s.docs.DeleteDocument(categoriesCollection, doc.ID); err != nil {
				s.logger.WithError(err).WithField("doc_id", doc.ID).Error("Failed to wipe category document")
			}
		}
	}

	s.eventMap = map[string]*models.CalendarEvent{}
	s.fetchedCollections = map[string]bool{}
	s.categories = map[string]bool{}
	s.summary = nil
	return nil
}

func (s *FreeFormService) memberDisplayName(id string) string {
	for _, m := range s.members {
		if m.ID == id {
			return m.DisplayName
		}
	}
	return "Unknown"
}
