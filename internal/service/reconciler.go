// internal/service/reconciler.go
package service

import (
	"fmt"
	"time"

	"team-calendar/internal/models"
	"team-calendar/pkg/dateutil"
	"team-calendar/pkg/worktrack"

	"github.com/sirupsen/logrus"
)

// DefaultHoursPerDay is the full-capacity baseline a member is scaled
// against when their adjusted capacity is computed, and the value written
// by the fallback activity when a member has no recorded capacity at all.
const DefaultHoursPerDay = 6.0

const developmentActivity = "Development"

// Adjustment records the outcome of one member's capacity write.
type Adjustment struct {
	Member         models.Member
	AvailableDays  float64
	CapacityPerDay float64
	Err            error
}

// CapacityReconciler recomputes per-member capacity from the team's days
// off and training events. Prepare reads everything and stages the numbers;
// Apply writes them back. The two-phase split lets callers inspect or log
// the staged numbers before any remote write happens.
type CapacityReconciler struct {
	work     worktrack.Client
	training *FreeFormService
	logger   *logrus.Logger

	team worktrack.TeamContext

	iteration    *models.Iteration
	capacities   []models.MemberCapacity
	trainingDays map[string]float64
	daysOffCount map[string]float64
}

func NewCapacityReconciler(work worktrack.Client, training *FreeFormService) *CapacityReconciler {
	return &CapacityReconciler{
		work:     work,
		training: training,
		logger:   newServiceLogger(),
	}
}

func (r *CapacityReconciler) Initialize(team worktrack.TeamContext) {
	r.team = team
	r.reset()
}

func (r *CapacityReconciler) reset() {
	r.iteration = nil
	r.capacities = nil
	r.trainingDays = nil
	r.daysOffCount = nil
}

// CurrentIteration returns the iteration containing today, or an error when
// no iteration covers it.
func (r *CapacityReconciler) CurrentIteration() (*models.Iteration, error) {
	iterations, err := r.work.GetTeamIterations(r.team)
	if err != nil {
		return nil, fmt.Errorf("fetch iterations: %w", err)
	}
	now := dateutil.ShiftToUTC(dateutil.Midnight(time.Now()))
	for i := range iterations {
		if iterations[i].Contains(now, now) {
			return &iterations[i], nil
		}
	}
	return nil, fmt.Errorf("no iteration contains %s", dateutil.DayKey(now))
}

// PrepareCapacityAdjustments stages the per-member numbers for an
// iteration: fresh capacity records, days-off day counts and training day
// counts. Caches are bypassed so a stale read cannot feed a write.
func (r *CapacityReconciler) PrepareCapacityAdjustments(iterationID string) error {
	r.reset()

	iterations, err := r.work.GetTeamIterations(r.team)
	if err != nil {
		return fmt.Errorf("fetch iterations: %w", err)
	}
	var iteration *models.Iteration
	for i := range iterations {
		if iterations[i].ID == iterationID {
			iteration = &iterations[i]
			break
		}
	}
	if iteration == nil {
		return fmt.Errorf("iteration %s not found", iterationID)
	}
	if iteration.StartDate.IsZero() || iteration.FinishDate.IsZero() {
		return validationErrorf("iteration %s has no date range", iteration.Name)
	}

	capacities, err := r.work.GetCapacities(r.team, iterationID)
	if err != nil {
		return fmt.Errorf("fetch capacities: %w", err)
	}

	localStart := dateutil.ShiftToLocal(iteration.StartDate)
	localEnd := dateutil.ShiftToLocal(iteration.FinishDate)

	daysOffCount := map[string]float64{}
	for _, capacity := range capacities {
		memberID := capacity.TeamMember.ID
		for _, dayOff := range capacity.DaysOff {
			rangeStart := dateutil.ShiftToLocal(dayOff.Start)
			rangeEnd := dateutil.ShiftToLocal(dayOff.End)
			if rangeEnd.Before(localStart) || rangeStart.After(localEnd) {
				continue
			}
			// Each stored range counts once, weighted by its half-day
			// tag, regardless of how many days it spans.
			daysOffCount[memberID] += halfDayWeight(detectHalfDay(rangeStart, rangeEnd))
		}
	}

	trainingDays, err := r.countTrainingDays(localStart, localEnd)
	if err != nil {
		return err
	}

	r.iteration = iteration
	r.capacities = capacities
	r.trainingDays = trainingDays
	r.daysOffCount = daysOffCount
	return nil
}

// countTrainingDays sums, per member, the weighted working days covered by
// training events within the window. A seen-day set keeps overlapping
// events from double-counting the same calendar day.
func (r *CapacityReconciler) countTrainingDays(winStart, winEnd time.Time) (map[string]float64, error) {
	if _, err := r.training.FetchEvents(winStart, winEnd); err != nil {
		return nil, err
	}

	totals := map[string]float64{}
	seen := map[string]map[string]bool{}

	for _, event := range r.training.Events() {
		if event.Category != models.CategoryTraining || event.Member == nil {
			continue
		}
		memberID := event.Member.ID
		weight := halfDayWeight(event.HalfDay)

		localStart := dateutil.ShiftToLocal(event.StartDate)
		localEnd := dateutil.ShiftToLocal(event.EndDate)

		for day := range dateutil.DatesInRange(localStart, localEnd) {
			if day.Before(winStart) || day.After(winEnd) || !dateutil.IsWorkingDay(day) {
				continue
			}
			dateKey := dateutil.DayKey(day)
			if seen[memberID] == nil {
				seen[memberID] = map[string]bool{}
			}
			if seen[memberID][dateKey] {
				continue
			}
			seen[memberID][dateKey] = true
			totals[memberID] += weight
		}
	}
	return totals, nil
}

// ApplyCapacityAdjustments writes the staged numbers back: each member's
// activities are replaced with a single Development entry scaled by their
// available working days. Per-member failures are recorded and skipped so
// one bad write cannot block the rest of the team.
func (r *CapacityReconciler) ApplyCapacityAdjustments() ([]Adjustment, error) {
	if r.iteration == nil {
		return nil, ErrNotPrepared
	}

	localStart := dateutil.ShiftToLocal(r.iteration.StartDate)
	localEnd := dateutil.ShiftToLocal(r.iteration.FinishDate)
	totalWorkingDays := float64(dateutil.WorkingDays(localStart, localEnd))
	if totalWorkingDays == 0 {
		return nil, validationErrorf("iteration %s has no working days", r.iteration.Name)
	}

	adjustments := make([]Adjustment, 0, len(r.capacities))
	for _, capacity := range r.capacities {
		member := capacity.TeamMember
		available := totalWorkingDays - r.daysOffCount[member.ID] - r.trainingDays[member.ID]
		if available < 0 {
			available = 0
		}
		adjusted := round1(available / totalWorkingDays * DefaultHoursPerDay)

		patch := models.CapacityPatch{
			Activities: []models.Activity{{Name: developmentActivity, CapacityPerDay: adjusted}},
			DaysOff:    capacity.DaysOff,
		}
		err := r.work.UpdateCapacity(patch, r.team, r.iteration.ID, member.ID)
		if err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"member":    member.ID,
				"iteration": r.iteration.ID,
			}).Error("Failed to write adjusted capacity")
		} else {
			r.logger.WithFields(logrus.Fields{
				"member":    member.DisplayName,
				"available": available,
				"capacity":  adjusted,
			}).Info("Capacity adjusted")
		}

		adjustments = append(adjustments, Adjustment{
			Member:         member,
			AvailableDays:  available,
			CapacityPerDay: adjusted,
			Err:            err,
		})
	}

	r.reset()
	return adjustments, nil
}

// SyncAllCapacity folds training events in the window into each member's
// days-off list as exact ranges. A member's record is only written when the
// merge actually added ranges; members with no capacity record at all get a
// default Development activity alongside their training ranges. Per-member
// write failures are logged and skipped.
func (r *CapacityReconciler) SyncAllCapacity(iterationID string, start, end time.Time) error {
	if _, err := r.training.FetchEvents(start, end); err != nil {
		return err
	}

	winStart := dateutil.Midnight(start)
	winEnd := dateutil.Midnight(end)

	trainingRanges := map[string][]models.DateRange{}
	for _, event := range r.training.Events() {
		if event.Category != models.CategoryTraining || event.Member == nil {
			continue
		}
		localStart := dateutil.ShiftToLocal(event.StartDate)
		localEnd := dateutil.ShiftToLocal(event.EndDate)
		if localEnd.Before(winStart) || localStart.After(winEnd) {
			continue
		}
		// Stored instants are already shifted; reuse them verbatim so the
		// merge's exact-equality comparison lines up with prior syncs.
		trainingRanges[event.Member.ID] = append(trainingRanges[event.Member.ID],
			models.DateRange{Start: event.StartDate, End: event.EndDate})
	}

	capacities, err := r.work.GetCapacities(r.team, iterationID)
	if err != nil {
		return fmt.Errorf("fetch capacities: %w", err)
	}

	recorded := map[string]bool{}
	for _, capacity := range capacities {
		memberID := capacity.TeamMember.ID
		recorded[memberID] = true

		ranges, ok := trainingRanges[memberID]
		if !ok {
			continue
		}
		merged := mergeExactRanges(capacity.DaysOff, ranges)
		if len(merged) == len(capacity.DaysOff) {
			continue
		}

		activities := capacity.Activities
		if len(activities) == 0 {
			activities = []models.Activity{{Name: developmentActivity, CapacityPerDay: DefaultHoursPerDay}}
		}

		patch := models.CapacityPatch{Activities: activities, DaysOff: merged}
		if err := r.work.UpdateCapacity(patch, r.team, iterationID, memberID); err != nil {
			r.logger.WithError(err).WithField("member", memberID).Error("Failed to sync training days off")
			continue
		}
		r.logger.WithFields(logrus.Fields{
			"member": memberID,
			"added":  len(merged) - len(capacity.DaysOff),
		}).Info("Training days merged into days off")
	}

	for memberID, ranges := range trainingRanges {
		if recorded[memberID] {
			continue
		}
		patch := models.CapacityPatch{
			Activities: []models.Activity{{Name: developmentActivity, CapacityPerDay: DefaultHoursPerDay}},
			DaysOff:    ranges,
		}
		if err := r.work.UpdateCapacity(patch, r.team, iterationID, memberID); err != nil {
			r.logger.WithError(err).WithField("member", memberID).Error("Failed to create capacity for member")
		}
	}
	return nil
}
