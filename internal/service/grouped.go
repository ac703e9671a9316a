// internal/service/grouped.go
package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"team-calendar/internal/models"
)

// upsertGroupedIcon records an event's icon on the day entry for dateKey,
// creating the entry on first touch. Icons are de-duplicated by the
// (member, start instant, half-day tag) triple so repeated processing of
// the same underlying event cannot stack duplicates. The entry-level
// Member and HalfDay only hold while every contributor agrees; on the
// first disagreement they reset to nil and full-day.
func upsertGroupedIcon(grouped map[string]*models.GroupedEvent, idPrefix, dateKey string, event *models.CalendarEvent, iconSrc string) {
	entry := grouped[dateKey]
	if entry == nil {
		entry = &models.GroupedEvent{
			ID:      idPrefix + "." + dateKey,
			DateKey: dateKey,
			Member:  event.Member,
			Icons:   []models.EventIcon{},
			HalfDay: event.HalfDay,
		}
		grouped[dateKey] = entry
	}

	for _, icon := range entry.Icons {
		linked := icon.LinkedEvent
		if linked == nil || linked.Member == nil || event.Member == nil {
			continue
		}
		if linked.Member.ID == event.Member.ID &&
			linked.StartDate.Equal(event.StartDate) &&
			linked.HalfDay == event.HalfDay {
			return
		}
	}
	entry.Icons = append(entry.Icons, models.EventIcon{Src: iconSrc, LinkedEvent: event})

	if entry.Member == nil || event.Member == nil || entry.Member.ID != event.Member.ID {
		entry.Member = nil
	}
	if entry.HalfDay != event.HalfDay {
		entry.HalfDay = models.HalfDayNone
	}
}

// summaryAccumulator folds per-day contributions into category totals. A
// per-entry seen-day set keeps counting idempotent when overlapping ranges
// touch the same calendar day under the same category.
type summaryAccumulator struct {
	entries  map[string]*models.CategorySummary
	seenDays map[string]map[string]bool
}

func newSummaryAccumulator() *summaryAccumulator {
	return &summaryAccumulator{
		entries:  map[string]*models.CategorySummary{},
		seenDays: map[string]map[string]bool{},
	}
}

func (a *summaryAccumulator) add(key string, proto models.CategorySummary, dateKey string, weight float64) {
	entry := a.entries[key]
	if entry == nil {
		copied := proto
		a.entries[key] = &copied
		a.seenDays[key] = map[string]bool{}
		entry = a.entries[key]
	}
	if a.seenDays[key][dateKey] {
		return
	}
	a.seenDays[key][dateKey] = true
	entry.EventCount += weight
}

// list renders the accumulated entries sorted by title, applying the
// subtitle for the final count.
func (a *summaryAccumulator) list(subtitle func(count float64) string) []models.CategorySummary {
	result := make([]models.CategorySummary, 0, len(a.entries))
	for _, entry := range a.entries {
		item := *entry
		item.EventCount = round1(item.EventCount)
		if subtitle != nil {
			item.SubTitle = subtitle(item.EventCount)
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// countSubtitle formats "2.5 days off", "1 day remote" and the like.
func countSubtitle(count float64, suffix string) string {
	rounded := round1(count)
	plural := "s"
	if rounded == 1 {
		plural = ""
	}
	return fmt.Sprintf("%s day%s %s", strconv.FormatFloat(rounded, 'f', -1, 64), plural, suffix)
}
