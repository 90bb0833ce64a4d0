package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps is the Settle quota used by the CLI.
const DefaultMaxSteps = 100_000

// Quota counts the events applied by one Settle call and enforces a
// maximum.
//
// Settle returns once nothing is outstanding. Continuations that keep
// starting new work (a page callback that always requests the next page)
// never reach that point; the quota turns such a runaway into an error.
type Quota struct {
	maxSteps int // Maximum events per Settle; zero means unlimited
	current  int // Events applied so far
}

// NewQuota creates a quota with the given limit.
func NewQuota(maxSteps int) *Quota {
	return &Quota{maxSteps: maxSteps}
}

// Check counts one event and validates against the limit.
// Returns StepsExceededError once the limit is passed.
func (q *Quota) Check(event string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Event: event,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset sets the count back to 0.
func (q *Quota) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *Quota) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *Quota) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned by Settle when the quota is exceeded.
// The event that tripped it is left in the queue.
type StepsExceededError struct {
	Event string // Name of the event that would have exceeded the quota
	Steps int    // Number of steps counted, including that event
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("settle exceeded max steps quota at %q: %d steps > %d limit",
		e.Event, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
