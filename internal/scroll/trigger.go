// Package scroll requests the next page when the end-of-list sentinel
// becomes visible.
package scroll

import (
	"context"
	"log/slog"

	"github.com/roach88/reelfeed/internal/pagination"
)

// DefaultThreshold is the sentinel visibility ratio that counts as visible.
const DefaultThreshold = 0.1

// Indicator is what the end of the list shows.
type Indicator string

const (
	IndicatorIdle    Indicator = "idle"
	IndicatorLoading Indicator = "loading"
	IndicatorEnd     Indicator = "end"
)

// Text returns the user-facing label of the indicator.
func (i Indicator) Text() string {
	switch i {
	case IndicatorLoading:
		return "Loading more items..."
	case IndicatorEnd:
		return "You've reached the end!"
	default:
		return ""
	}
}

// Trigger observes one sentinel for the controller's active entry.
//
// It calls FetchNext exactly once per transition of the sentinel to
// visible. Continuous visibility never re-fires; the next genuine
// transition does. Once the active entry is exhausted the trigger is inert.
type Trigger struct {
	ctrl      *pagination.Controller
	threshold float64
	logger    *slog.Logger

	visible   bool
	signature string
	requests  int
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithThreshold sets the ratio at which the sentinel counts as visible.
func WithThreshold(ratio float64) Option {
	return func(t *Trigger) {
		t.threshold = ratio
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Trigger) {
		t.logger = l
	}
}

// New creates a trigger bound to ctrl.
func New(ctrl *pagination.Controller, opts ...Option) *Trigger {
	t := &Trigger{
		ctrl:      ctrl,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Report converts an intersection ratio into a visibility observation.
func (t *Trigger) Report(ctx context.Context, ratio float64) bool {
	return t.Observe(ctx, ratio >= t.threshold)
}

// Observe records the sentinel's visibility. It returns true if a page
// request was started.
func (t *Trigger) Observe(ctx context.Context, visible bool) bool {
	entry, ok := t.ctrl.Cache().Active()
	if ok && entry.Signature() != t.signature {
		// New filter: the old visibility state no longer applies.
		t.signature = entry.Signature()
		t.visible = false
	}

	rising := visible && !t.visible
	t.visible = visible
	if !rising || !ok {
		return false
	}
	if entry.Exhausted() {
		return false
	}

	started := t.ctrl.FetchNext(ctx, entry.Filter())
	if started {
		t.requests++
		t.logger.Debug("sentinel requested next page", "index", entry.NextIndex())
	}
	return started
}

// Reset forgets the sentinel state, e.g. when the list is re-rendered.
func (t *Trigger) Reset() {
	t.visible = false
	t.signature = ""
}

// Inert reports whether the active entry is exhausted.
func (t *Trigger) Inert() bool {
	entry, ok := t.ctrl.Cache().Active()
	return ok && entry.Exhausted()
}

// Requests returns how many page requests the trigger started.
func (t *Trigger) Requests() int {
	return t.requests
}

// Indicator returns what the end of the list should show.
func (t *Trigger) Indicator() Indicator {
	entry, ok := t.ctrl.Cache().Active()
	switch {
	case !ok:
		return IndicatorIdle
	case entry.Exhausted():
		return IndicatorEnd
	case entry.Fetching():
		return IndicatorLoading
	default:
		return IndicatorIdle
	}
}
