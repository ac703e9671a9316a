// internal/service/fakes_test.go
package service

import (
	"fmt"
	"time"

	"team-calendar/internal/models"
	"team-calendar/internal/repository"
	"team-calendar/pkg/worktrack"
)

// fakeDocStore is an in-memory DocumentStore that records query counts per
// collection and supports per-collection write failure injection.
type fakeDocStore struct {
	collections map[string]map[string]*models.CalendarEvent
	queries     map[string]int
	failCreate  map[string]error
	failQuery   error
	nextID      int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		collections: map[string]map[string]*models.CalendarEvent{},
		queries:     map[string]int{},
		failCreate:  map[string]error{},
	}
}

func (f *fakeDocStore) QueryCollectionsByName(names []string) ([]repository.Collection, error) {
	if f.failQuery != nil {
		return nil, f.failQuery
	}
	result := make([]repository.Collection, 0, len(names))
	for _, name := range names {
		f.queries[name]++
		docs, _ := f.GetDocuments(name)
		result = append(result, repository.Collection{Name: name, Documents: docs})
	}
	return result, nil
}

func (f *fakeDocStore) GetDocuments(collection string) ([]*models.CalendarEvent, error) {
	docs := make([]*models.CalendarEvent, 0, len(f.collections[collection]))
	for _, doc := range f.collections[collection] {
		copied := *doc
		docs = append(docs, &copied)
	}
	return docs, nil
}

func (f *fakeDocStore) CreateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	if err := f.failCreate[collection]; err != nil {
		return nil, err
	}
	stored := *event
	if stored.ID == "" {
		f.nextID++
		stored.ID = fmt.Sprintf("doc-%d", f.nextID)
	}
	stored.ETag = 1
	if f.collections[collection] == nil {
		f.collections[collection] = map[string]*models.CalendarEvent{}
	}
	f.collections[collection][stored.ID] = &stored
	returned := stored
	return &returned, nil
}

func (f *fakeDocStore) UpdateDocument(collection string, event *models.CalendarEvent) (*models.CalendarEvent, error) {
	existing, ok := f.collections[collection][event.ID]
	if !ok {
		return nil, fmt.Errorf("document %s/%s not found", collection, event.ID)
	}
	stored := *event
	stored.ETag = existing.ETag + 1
	f.collections[collection][stored.ID] = &stored
	returned := stored
	return &returned, nil
}

func (f *fakeDocStore) DeleteDocument(collection, id string) error {
	delete(f.collections[collection], id)
	return nil
}

func (f *fakeDocStore) count(collection string) int {
	return len(f.collections[collection])
}

// fakeWorkClient is an in-memory work-tracking service. Capacity and team
// days-off writes are applied to its state so repeated syncs observe their
// own effects, and every write is recorded for assertions.
type fakeWorkClient struct {
	iterations  []models.Iteration
	capacities  map[string]map[string]models.MemberCapacity
	teamDaysOff map[string]models.TeamDaysOff

	capacityWrites []capacityWrite
	teamWrites     []teamWrite

	failGetCapacities error
	failUpdate        map[string]error
}

type capacityWrite struct {
	iterationID string
	memberID    string
	patch       models.CapacityPatch
}

type teamWrite struct {
	iterationID string
	patch       models.TeamDaysOffPatch
}

func newFakeWorkClient(iterations ...models.Iteration) *fakeWorkClient {
	return &fakeWorkClient{
		iterations:  iterations,
		capacities:  map[string]map[string]models.MemberCapacity{},
		teamDaysOff: map[string]models.TeamDaysOff{},
		failUpdate:  map[string]error{},
	}
}

func (f *fakeWorkClient) setCapacity(iterationID string, capacity models.MemberCapacity) {
	if f.capacities[iterationID] == nil {
		f.capacities[iterationID] = map[string]models.MemberCapacity{}
	}
	f.capacities[iterationID][capacity.TeamMember.ID] = capacity
}

func (f *fakeWorkClient) GetTeamIterations(team worktrack.TeamContext) ([]models.Iteration, error) {
	return f.iterations, nil
}

func (f *fakeWorkClient) GetCapacities(team worktrack.TeamContext, iterationID string) ([]models.MemberCapacity, error) {
	if f.failGetCapacities != nil {
		return nil, f.failGetCapacities
	}
	capacities := make([]models.MemberCapacity, 0, len(f.capacities[iterationID]))
	for _, capacity := range f.capacities[iterationID] {
		capacities = append(capacities, capacity)
	}
	return capacities, nil
}

func (f *fakeWorkClient) UpdateCapacity(patch models.CapacityPatch, team worktrack.TeamContext, iterationID, memberID string) error {
	if err := f.failUpdate[memberID]; err != nil {
		return err
	}
	f.capacityWrites = append(f.capacityWrites, capacityWrite{iterationID, memberID, patch})

	existing := f.capacities[iterationID][memberID]
	member := existing.TeamMember
	if member.ID == "" {
		member = models.Member{ID: memberID}
	}
	f.setCapacity(iterationID, models.MemberCapacity{
		TeamMember: member,
		Activities: patch.Activities,
		DaysOff:    patch.DaysOff,
	})
	return nil
}

func (f *fakeWorkClient) GetTeamDaysOff(team worktrack.TeamContext, iterationID string) (models.TeamDaysOff, error) {
	return f.teamDaysOff[iterationID], nil
}

func (f *fakeWorkClient) UpdateTeamDaysOff(patch models.TeamDaysOffPatch, team worktrack.TeamContext, iterationID string) error {
	f.teamWrites = append(f.teamWrites, teamWrite{iterationID, patch})
	f.teamDaysOff[iterationID] = models.TeamDaysOff{DaysOff: patch.DaysOff}
	return nil
}

func localDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func testTeam() worktrack.TeamContext {
	return worktrack.TeamContext{
		Project:   "Fabrikam",
		ProjectID: "proj-1",
		Team:      "Fabrikam Team",
		TeamID:    "team1",
	}
}
