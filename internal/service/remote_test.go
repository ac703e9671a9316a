// internal/service/remote_test.go
package service

import (
	"errors"
	"testing"
	"time"

	"team-calendar/internal/models"
)

func newTestRemote(t *testing.T, docs *fakeDocStore) *RemoteService {
	t.Helper()
	work := newFakeWorkClient(models.Iteration{
		ID:         "it1",
		Name:       "Sprint 1",
		StartDate:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		FinishDate: time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC),
	})
	s := NewRemoteService(docs, work)
	if err := s.Initialize(testTeam(), "https://dev.example.com/org"); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRemoteAddEventGroupsByDay(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	bob := models.Member{ID: "m2", DisplayName: "Bob"}
	day := localDate(2024, time.June, 3)

	if _, err := s.AddEvent(day, day, models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvent(day, day, models.HalfDayNone, bob); err != nil {
		t.Fatal(err)
	}

	grouped := s.GetGroupedEventForDate(day)
	if grouped == nil {
		t.Fatal("no grouped entry for day")
	}
	if len(grouped.Icons) != 2 {
		t.Fatalf("grouped entry has %d icons, want 2", len(grouped.Icons))
	}
}

func TestRemoteGroupedIconsDeduplicate(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	day := localDate(2024, time.June, 3)

	if _, err := s.AddEvent(day, day, models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvent(day, day, models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}

	grouped := s.GetGroupedEventForDate(day)
	if len(grouped.Icons) != 1 {
		t.Fatalf("duplicate add produced %d icons, want 1", len(grouped.Icons))
	}
}

func TestRemoteGetEventsIsIdempotent(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	bob := models.Member{ID: "m2", DisplayName: "Bob"}
	day := localDate(2024, time.June, 3)

	if _, err := s.AddEvent(day, day, models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvent(day, day, models.HalfDayAM, bob); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		events, err := s.GetEvents(localDate(2024, time.June, 1), localDate(2024, time.June, 30))
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 2 {
			t.Fatalf("pass %d: got %d events, want 2", i, len(events))
		}
		grouped := s.GetGroupedEventForDate(day)
		if len(grouped.Icons) != 2 {
			t.Fatalf("pass %d: grouped entry has %d icons, want 2", i, len(grouped.Icons))
		}
	}

	summary := s.Summary()
	if len(summary) != 2 {
		t.Fatalf("got %d summary entries, want 2", len(summary))
	}
	// Sorted by title: Alice full day, Bob half day.
	if summary[0].Title != "Alice" || summary[0].EventCount != 1 {
		t.Fatalf("Alice summary = %+v", summary[0])
	}
	if summary[1].Title != "Bob" || summary[1].EventCount != 0.5 {
		t.Fatalf("Bob summary = %+v", summary[1])
	}
	if summary[1].SubTitle != "0.5 days remote" {
		t.Fatalf("Bob subtitle = %q", summary[1].SubTitle)
	}
}

func TestRemoteGetEventsExcludesDayAfterWindow(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	if _, err := s.AddEvent(localDate(2024, time.June, 30), localDate(2024, time.June, 30), models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddEvent(localDate(2024, time.July, 1), localDate(2024, time.July, 1), models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}

	events, err := s.GetEvents(localDate(2024, time.June, 1), localDate(2024, time.June, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if s.GetGroupedEventForDate(localDate(2024, time.June, 30)) == nil {
		t.Fatal("last window day missing from grouped index")
	}
	if s.GetGroupedEventForDate(localDate(2024, time.July, 1)) != nil {
		t.Fatal("day after window leaked into grouped index")
	}

	summary := s.Summary()
	if len(summary) != 1 || summary[0].EventCount != 1 {
		t.Fatalf("summary = %+v, want Alice with 1 day", summary)
	}
}

func TestRemoteUpdateEventMovesGroupedIcon(t *testing.T) {
	docs := newFakeDocStore()
	s := newTestRemote(t, docs)

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	oldDay := localDate(2024, time.June, 3)
	newDay := localDate(2024, time.July, 1)

	created, err := s.AddEvent(oldDay, oldDay, models.HalfDayNone, alice)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateEvent(created.ID, newDay, newDay, models.HalfDayNone, alice); err != nil {
		t.Fatal(err)
	}

	if s.GetGroupedEventForDate(oldDay) != nil {
		t.Fatal("stale grouped entry left on old day")
	}
	if s.GetGroupedEventForDate(newDay) == nil {
		t.Fatal("no grouped entry on new day")
	}
	if docs.count("team1.06-2024") != 0 || docs.count("team1.07-2024") != 1 {
		t.Fatalf("buckets = %d/%d, want 0/1",
			docs.count("team1.06-2024"), docs.count("team1.07-2024"))
	}
}

func TestRemoteDeleteEventRemovesIcon(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	alice := models.Member{ID: "m1", DisplayName: "Alice"}
	day := localDate(2024, time.June, 3)

	created, err := s.AddEvent(day, day, models.HalfDayNone, alice)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEvent(created.ID); err != nil {
		t.Fatal(err)
	}

	if s.GetGroupedEventForDate(day) != nil {
		t.Fatal("grouped entry survived delete")
	}
	if err := s.DeleteEvent(created.ID); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("second delete = %v, want ErrEventNotFound", err)
	}
}

func TestRemoteGetIterationForDate(t *testing.T) {
	s := newTestRemote(t, newFakeDocStore())

	if it := s.GetIterationForDate(localDate(2024, time.June, 3), localDate(2024, time.June, 5)); it == nil || it.ID != "it1" {
		t.Fatalf("iteration = %+v, want it1", it)
	}
	if it := s.GetIterationForDate(localDate(2024, time.June, 13), localDate(2024, time.June, 20)); it != nil {
		t.Fatalf("range past iteration end matched %+v", it)
	}
}
