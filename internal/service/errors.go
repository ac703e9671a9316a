// internal/service/errors.go
package service

import (
	"errors"
	"fmt"
)

// ValidationError reports input rejected before any remote call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ErrOverlappingDaysOff is returned when a new days-off range intersects an
// existing range for the same member or team.
var ErrOverlappingDaysOff = errors.New("days-off range overlaps an existing range")

// ErrEventNotFound is returned for updates or deletes of unknown event ids.
var ErrEventNotFound = errors.New("event not found")

// ErrNotPrepared is returned when capacity adjustments are applied before
// PrepareCapacityAdjustments has run.
var ErrNotPrepared = errors.New("capacity adjustments have not been prepared")

// IsValidation reports whether err was rejected locally, without reaching
// the persistence layer or the work-tracking service.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, ErrOverlappingDaysOff)
}
