// internal/service/summary.go
package service

import "team-calendar/internal/models"

// SummarySection is one titled block of the sidebar summary.
type SummarySection struct {
	Title string
	Items []models.CategorySummary
}

// SummaryAggregator assembles the sidebar sections from the three stores'
// last-computed summaries. Callers refresh the stores with GetEvents first;
// Sections only reads cached results.
type SummaryAggregator struct {
	capacity *CapacityService
	freeForm *FreeFormService
	remote   *RemoteService
}

func NewSummaryAggregator(capacity *CapacityService, freeForm *FreeFormService, remote *RemoteService) *SummaryAggregator {
	return &SummaryAggregator{
		capacity: capacity,
		freeForm: freeForm,
		remote:   remote,
	}
}

func (a *SummaryAggregator) Sections() []SummarySection {
	return []SummarySection{
		{Title: "Iterations", Items: a.capacity.IterationSummary()},
		{Title: "Days off", Items: a.capacity.CapacitySummary()},
		{Title: "Events", Items: a.freeForm.Summary()},
		{Title: "Remote", Items: a.remote.Summary()},
	}
}
