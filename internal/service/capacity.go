// internal/service/capacity.go
package service

import (
	"fmt"
	"sort"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"
	"team-calendar/pkg/worktrack"

	"github.com/sirupsen/logrus"
)

const (
	daysOffIDPrefix   = "daysOff"
	iterationIDPrefix = "iteration"
)

// CapacityService owns the days-off view of the external work-tracking
// service: member days off live inside per-iteration capacity records,
// team-wide days off in the iteration's team record. Every write is a
// read-modify-write replace of the whole list.
type CapacityService struct {
	work   worktrack.Client
	logger *logrus.Logger

	team    worktrack.TeamContext
	hostURL string

	iterations       []models.Iteration
	capacityMap      map[string]map[string]models.MemberCapacity
	teamDaysOffMap   map[string]*models.TeamDaysOff
	halfDayOverrides map[string]models.HalfDay
	groupedEventMap  map[string]*models.GroupedEvent
	capacitySummary  []models.CategorySummary
	iterationSummary []models.CategorySummary
}

func NewCapacityService(work worktrack.Client) *CapacityService {
	return &CapacityService{
		work:   work,
		logger: newServiceLogger(),
	}
}

// Initialize resets all per-team state. Required before any other call.
func (s *CapacityService) Initialize(team worktrack.TeamContext, hostURL string) {
	s.team = team
	s.hostURL = hostURL
	s.iterations = nil
	s.capacityMap = map[string]map[string]models.MemberCapacity{}
	s.teamDaysOffMap = map[string]*models.TeamDaysOff{}
	s.halfDayOverrides = map[string]models.HalfDay{}
	s.groupedEventMap = map[string]*models.GroupedEvent{}
	s.capacitySummary = nil
	s.iterationSummary = nil
}

// AddDaysOff appends a days-off range for a member, or for the whole team
// when member is the Everyone sentinel. Overlapping ranges are rejected
// before any remote call; existing entries are never merged.
func (s *CapacityService) AddDaysOff(iterationID string, startDate, endDate time.Time, halfDay models.HalfDay, member models.Member) error {
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)
	newRange := models.DateRange{
		Start: dateutil.ShiftToUTC(startDate),
		End:   dateutil.ShiftToUTC(endDate),
	}

	if member.Everyone {
		teamDaysOff, err := s.fetchTeamDaysOff(iterationID)
		if err != nil {
			return err
		}
		if err := checkDaysOffOverlap(teamDaysOff.DaysOff, newRange.Start, newRange.End); err != nil {
			return err
		}

		delete(s.teamDaysOffMap, iterationID)
		patch := models.TeamDaysOffPatch{DaysOff: append(cloneRanges(teamDaysOff.DaysOff), newRange)}
		if err := s.work.UpdateTeamDaysOff(patch, s.team, iterationID); err != nil {
			return fmt.Errorf("add team days off: %w", err)
		}
		return nil
	}

	capacity, err := s.memberCapacity(iterationID, member.ID)
	if err != nil {
		return err
	}
	if err := checkDaysOffOverlap(capacity.DaysOff, newRange.Start, newRange.End); err != nil {
		return err
	}

	delete(s.capacityMap, iterationID)
	s.setHalfDayOverride(member.ID, newRange.Start, halfDay)
	patch := models.CapacityPatch{
		Activities: capacity.Activities,
		DaysOff:    append(cloneRanges(capacity.DaysOff), newRange),
	}
	if err := s.work.UpdateCapacity(patch, s.team, iterationID, member.ID); err != nil {
		return fmt.Errorf("add days off for member %s: %w", member.ID, err)
	}
	return nil
}

// UpdateDaysOff rewrites the range whose start matches the event's original
// start. The replacement must not overlap any of the member's other ranges.
func (s *CapacityService) UpdateDaysOff(event *models.CalendarEvent, iterationID string, startDate, endDate time.Time, halfDay models.HalfDay) error {
	if event.Member == nil {
		return validationErrorf("days-off event has no member")
	}
	if err := validateEventRange(startDate, endDate, halfDay); err != nil {
		return err
	}
	startDate, endDate = normalizeEventTimes(startDate, endDate, halfDay)
	newRange := models.DateRange{
		Start: dateutil.ShiftToUTC(startDate),
		End:   dateutil.ShiftToUTC(endDate),
	}
	originalStart := event.StartDate

	if event.Member.Everyone {
		teamDaysOff, err := s.fetchTeamDaysOff(iterationID)
		if err != nil {
			return err
		}
		ranges, target := splitRangeByStart(teamDaysOff.DaysOff, originalStart)
		if target == nil {
			return fmt.Errorf("%w: team days off starting %s", ErrEventNotFound, dateutil.DayKey(originalStart))
		}
		if err := checkDaysOffOverlap(ranges, newRange.Start, newRange.End); err != nil {
			return err
		}

		delete(s.teamDaysOffMap, iterationID)
		patch := models.TeamDaysOffPatch{DaysOff: append(ranges, newRange)}
		if err := s.work.UpdateTeamDaysOff(patch, s.team, iterationID); err != nil {
			return fmt.Errorf("update team days off: %w", err)
		}
		return nil
	}

	memberID := event.Member.ID
	capacity, err := s.memberCapacity(iterationID, memberID)
	if err != nil {
		return err
	}
	ranges, target := splitRangeByStart(capacity.DaysOff, originalStart)
	if target == nil {
		return fmt.Errorf("%w: days off starting %s for member %s",
			ErrEventNotFound, dateutil.DayKey(originalStart), memberID)
	}
	if err := checkDaysOffOverlap(ranges, newRange.Start, newRange.End); err != nil {
		return err
	}

	delete(s.capacityMap, iterationID)
	delete(s.halfDayOverrides, overrideKey(memberID, originalStart))
	s.setHalfDayOverride(memberID, newRange.Start, halfDay)

	patch := models.CapacityPatch{Activities: capacity.Activities, DaysOff: append(ranges, newRange)}
	if err := s.work.UpdateCapacity(patch, s.team, iterationID, memberID); err != nil {
		return fmt.Errorf("update days off for member %s: %w", memberID, err)
	}
	return nil
}

// DeleteDaysOff removes the range matching the event's exact start and end.
func (s *CapacityService) DeleteDaysOff(event *models.CalendarEvent, iterationID string) error {
	if event.Member == nil {
		return validationErrorf("days-off event has no member")
	}

	if event.Member.Everyone {
		teamDaysOff, err := s.fetchTeamDaysOff(iterationID)
		if err != nil {
			return err
		}
		delete(s.teamDaysOffMap, iterationID)
		patch := models.TeamDaysOffPatch{
			DaysOff: removeExactRange(teamDaysOff.DaysOff, event.StartDate, event.EndDate),
		}
		if err := s.work.UpdateTeamDaysOff(patch, s.team, iterationID); err != nil {
			return fmt.Errorf("delete team days off: %w", err)
		}
		return nil
	}

	memberID := event.Member.ID
	capacity, err := s.memberCapacity(iterationID, memberID)
	if err != nil {
		return err
	}
	delete(s.capacityMap, iterationID)
	delete(s.halfDayOverrides, overrideKey(memberID, event.StartDate))

	patch := models.CapacityPatch{
		Activities: capacity.Activities,
		DaysOff:    removeExactRange(capacity.DaysOff, event.StartDate, event.EndDate),
	}
	if err := s.work.UpdateCapacity(patch, s.team, iterationID, memberID); err != nil {
		return fmt.Errorf("delete days off for member %s: %w", memberID, err)
	}
	return nil
}

// GetEvents returns the render-ready events for the window: iteration
// markers plus one grouped event per day carrying member icons. The grouped
// index and both summaries are rebuilt from scratch and swapped in at the
// end.
func (s *CapacityService) GetEvents(start, end time.Time) ([]*models.CalendarEvent, error) {
	iterations, err := s.fetchIterations()
	if err != nil {
		return nil, err
	}

	winStart := dateutil.Midnight(start)
	winEnd := dateutil.Midnight(end)

	grouped := map[string]*models.GroupedEvent{}
	acc := newSummaryAccumulator()
	var iterationSummary []models.CategorySummary
	var rendered []*models.CalendarEvent

	for i := range iterations {
		iteration := &iterations[i]
		loadIterationData := false

		if !iteration.StartDate.IsZero() && !iteration.FinishDate.IsZero() {
			localStart := dateutil.ShiftToLocal(iteration.StartDate)
			localEnd := dateutil.ShiftToLocal(iteration.FinishDate)

			if !(localEnd.Before(winStart) || localStart.After(winEnd)) {
				loadIterationData = true

				rendered = append(rendered, &models.CalendarEvent{
					ID:              iterationIDPrefix + "." + iteration.Name,
					DisplayCategory: "Iteration",
					Title:           iteration.Name,
					StartDate:       localStart,
					EndDate:         localEnd.AddDate(0, 0, 1),
					IterationID:     iteration.ID,
				})
				iterationSummary = append(iterationSummary, models.CategorySummary{
					Title:      iteration.Name,
					SubTitle:   localStart.Format("Jan 02") + " - " + localEnd.Format("Jan 02"),
					EventCount: 1,
				})
			}
		} else {
			loadIterationData = true
		}

		if !loadIterationData {
			continue
		}

		teamDaysOff, err := s.fetchTeamDaysOff(iteration.ID)
		if err != nil {
			return nil, err
		}
		s.processTeamDaysOff(teamDaysOff, iteration.ID, grouped, acc, winStart, winEnd)

		capacities, err := s.fetchCapacities(iteration.ID)
		if err != nil {
			return nil, err
		}
		s.processCapacities(capacities, iteration.ID, grouped, acc, winStart, winEnd)
	}

	dateKeys := make([]string, 0, len(grouped))
	for key := range grouped {
		dateKeys = append(dateKeys, key)
	}
	sort.Strings(dateKeys)
	for _, key := range dateKeys {
		rendered = append(rendered, groupedToEvent(grouped[key]))
	}

	s.groupedEventMap = grouped
	s.capacitySummary = acc.list(func(count float64) string { return countSubtitle(count, "off") })
	s.iterationSummary = iterationSummary
	return rendered, nil
}

// GetEventsFunc is the callback-style adapter used by the render surface.
func (s *CapacityService) GetEventsFunc(start, end time.Time, onSuccess func([]*models.CalendarEvent), onError func(error)) {
	events, err := s.GetEvents(start, end)
	if err != nil {
		onError(err)
		return
	}
	onSuccess(events)
}

// GetGroupedEventForDate returns the grouped day entry for a wall-clock
// date, if any.
func (s *CapacityService) GetGroupedEventForDate(date time.Time) *models.GroupedEvent {
	return s.groupedEventMap[utcDayKey(dateutil.ShiftToUTC(date))]
}

// GetIterationForDate returns the cached iteration containing both dates.
func (s *CapacityService) GetIterationForDate(startDate, endDate time.Time) *models.Iteration {
	utcStart := dateutil.ShiftToUTC(startDate)
	utcEnd := dateutil.ShiftToUTC(endDate)
	for i := range s.iterations {
		if s.iterations[i].Contains(utcStart, utcEnd) {
			return &s.iterations[i]
		}
	}
	return nil
}

// CapacitySummary returns the per-member days-off totals from the last
// GetEvents call.
func (s *CapacityService) CapacitySummary() []models.CategorySummary {
	return s.capacitySummary
}

// IterationSummary returns the iterations overlapping the last window.
func (s *CapacityService) IterationSummary() []models.CategorySummary {
	return s.iterationSummary
}

// Iterations returns the cached iteration list, fetching it on first use.
func (s *CapacityService) Iterations() ([]models.Iteration, error) {
	return s.fetchIterations()
}

func (s *CapacityService) fetchIterations() ([]models.Iteration, error) {
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

func (s *CapacityService) fetchCapacities(iterationID string) ([]models.MemberCapacity, error) {
	if cached, ok := s.capacityMap[iterationID]; ok {
		capacities := make([]models.MemberCapacity, 0, len(cached))
		for _, c := range cached {
			capacities = append(capacities, c)
		}
		sort.Slice(capacities, func(i, j int) bool {
			return capacities[i].TeamMember.ID < capacities[j].TeamMember.ID
		})
		return capacities, nil
	}

	capacities, err := s.work.GetCapacities(s.team, iterationID)
	if err != nil {
		return nil, fmt.Errorf("fetch capacities: %w", err)
	}
	return capacities, nil
}

func (s *CapacityService) fetchTeamDaysOff(iterationID string) (*models.TeamDaysOff, error) {
	if cached, ok := s.teamDaysOffMap[iterationID]; ok {
		return cached, nil
	}
	teamDaysOff, err := s.work.GetTeamDaysOff(s.team, iterationID)
	if err != nil {
		return nil, fmt.Errorf("fetch team days off: %w", err)
	}
	s.teamDaysOffMap[iterationID] = &teamDaysOff
	return &teamDaysOff, nil
}

// memberCapacity returns the member's capacity record, cached or fetched,
// falling back to an empty record for members with none yet.
func (s *CapacityService) memberCapacity(iterationID, memberID string) (models.MemberCapacity, error) {
	if cached, ok := s.capacityMap[iterationID]; ok {
		if capacity, ok := cached[memberID]; ok {
			return capacity, nil
		}
	} else {
		capacities, err := s.work.GetCapacities(s.team, iterationID)
		if err != nil {
			return models.MemberCapacity{}, fmt.Errorf("fetch capacities: %w", err)
		}
		s.cacheCapacities(iterationID, capacities)
		if capacity, ok := s.capacityMap[iterationID][memberID]; ok {
			return capacity, nil
		}
	}

	return models.MemberCapacity{
		TeamMember: models.Member{ID: memberID},
		Activities: []models.Activity{{Name: "", CapacityPerDay: 0}},
		DaysOff:    []models.DateRange{},
	}, nil
}

func (s *CapacityService) cacheCapacities(iterationID string, capacities []models.MemberCapacity) {
	byMember := map[string]models.MemberCapacity{}
	for _, capacity := range capacities {
		byMember[capacity.TeamMember.ID] = capacity
	}
	s.capacityMap[iterationID] = byMember
}

func (s *CapacityService) processCapacities(capacities []models.MemberCapacity, iterationID string, grouped map[string]*models.GroupedEvent, acc *summaryAccumulator, winStart, winEnd time.Time) {
	s.cacheCapacities(iterationID, capacities)

	for _, capacity := range capacities {
		member := capacity.TeamMember
		iconSrc := avatarURL(s.hostURL, member.ID)

		for _, dayOff := range capacity.DaysOff {
			s.processDaysOffRange(dayOff, iterationID, member, member.DisplayName+" Day Off",
				iconSrc, member.ID, grouped, acc, winStart, winEnd)
		}
	}
}

func (s *CapacityService) processTeamDaysOff(teamDaysOff *models.TeamDaysOff, iterationID string, grouped map[string]*models.GroupedEvent, acc *summaryAccumulator, winStart, winEnd time.Time) {
	member := models.EveryoneMember(s.team.TeamID)
	iconSrc := s.teamImageURL()

	for _, dayOff := range teamDaysOff.DaysOff {
		s.processDaysOffRange(dayOff, iterationID, member, "Team Day Off",
			iconSrc, s.team.Team, grouped, acc, winStart, winEnd)
	}
}

// processDaysOffRange expands one stored range into per-day grouped entries
// and summary contributions within the window.
func (s *CapacityService) processDaysOffRange(dayOff models.DateRange, iterationID string, member models.Member, title, iconSrc, summaryKey string, grouped map[string]*models.GroupedEvent, acc *summaryAccumulator, winStart, winEnd time.Time) {
	localStart := dateutil.ShiftToLocal(dayOff.Start)
	localEnd := dateutil.ShiftToLocal(dayOff.End)

	halfDay := s.halfDayFor(member.ID, dayOff.Start, localStart, localEnd)
	weight := halfDayWeight(halfDay)

	category := models.CategoryDaysOff
	if member.Everyone {
		category = models.CategoryTeamDaysOff
	}
	owner := member
	event := &models.CalendarEvent{
		Category:        category,
		DisplayCategory: title,
		Title:           title,
		StartDate:       dayOff.Start,
		EndDate:         dayOff.End,
		HalfDay:         halfDay,
		IterationID:     iterationID,
		Member:          &owner,
	}

	summaryTitle := member.DisplayName
	if member.Everyone {
		summaryTitle = s.team.Team
	}

	for day := range dateutil.DatesInRange(localStart, localEnd) {
		if day.Before(winStart) || day.After(winEnd) {
			continue
		}
		dateKey := dateutil.DayKey(day)

		acc.add(summaryKey, models.CategorySummary{
			Title:    summaryTitle,
			ImageURL: iconSrc,
		}, dateKey, weight)

		upsertGroupedIcon(grouped, daysOffIDPrefix, dateKey, event, iconSrc)
	}
}

// halfDayFor resolves the half-day tag for a stored range: an explicit
// override recorded at add/update time wins, otherwise the canonical clock
// hours identify it.
func (s *CapacityService) halfDayFor(memberID string, utcStart, localStart, localEnd time.Time) models.HalfDay {
	if halfDay, ok := s.halfDayOverrides[overrideKey(memberID, utcStart)]; ok {
		return halfDay
	}
	return detectHalfDay(localStart, localEnd)
}

func (s *CapacityService) setHalfDayOverride(memberID string, utcStart time.Time, halfDay models.HalfDay) {
	key := overrideKey(memberID, utcStart)
	if halfDay == models.HalfDayNone {
		delete(s.halfDayOverrides, key)
		return
	}
	s.halfDayOverrides[key] = halfDay
}

func (s *CapacityService) teamImageURL() string {
	return s.hostURL + "/_api/_common/IdentityImage?id=" + s.team.TeamID
}

func overrideKey(memberID string, start time.Time) string {
	return memberID + "_" + start.UTC().Format(time.RFC3339)
}

func cloneRanges(ranges []models.DateRange) []models.DateRange {
	cloned := make([]models.DateRange, len(ranges))
	copy(cloned, ranges)
	return cloned
}

// splitRangeByStart returns the ranges except the one starting at start,
// and that range if found.
func splitRangeByStart(ranges []models.DateRange, start time.Time) ([]models.DateRange, *models.DateRange) {
	var rest []models.DateRange
	var target *models.DateRange
	for i := range ranges {
		if target == nil && ranges[i].Start.Equal(start) {
			found := ranges[i]
			target = &found
			continue
		}
		rest = append(rest, ranges[i])
	}
	return rest, target
}

func removeExactRange(ranges []models.DateRange, start, end time.Time) []models.DateRange {
	result := make([]models.DateRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Start.Equal(start) && r.End.Equal(end) {
			continue
		}
		result = append(result, r)
	}
	return result
}

func groupedToEvent(entry *models.GroupedEvent) *models.CalendarEvent {
	day, _ := time.ParseInLocation("2006-01-02", entry.DateKey, time.Local)
	start, end := normalizeEventTimes(day, day, entry.HalfDay)
	return &models.CalendarEvent{
		ID:              entry.ID,
		DisplayCategory: models.GroupedEventTitle,
		Title:           "",
		StartDate:       start,
		EndDate:         end,
		HalfDay:         entry.HalfDay,
		Member:          entry.Member,
		Icons:           entry.Icons,
	}
}
