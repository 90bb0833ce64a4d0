// Package visibility tracks which feed items are on screen and decides
// which of them play.
package visibility

import (
	"log/slog"
	"slices"
)

// DefaultThreshold is the visible ratio at which an item becomes active.
const DefaultThreshold = 0.3

// State is the visibility state of one item.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Observation is one intersection report.
type Observation struct {
	ItemID string
	Ratio  float64
}

// Transition is a change of an item's state.
type Transition struct {
	ItemID string
	State  State
}

// Tracker turns intersection ratios into per-item active/inactive
// transitions. An item transitions only when its ratio crosses the
// threshold; repeated reports on the same side produce nothing.
//
// Not safe for concurrent use.
type Tracker struct {
	threshold float64
	logger    *slog.Logger
	states    map[string]State
	subs      map[int]func(Transition)
	subOrder  []int
	nextSub   int
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithThreshold sets the activation ratio.
func WithThreshold(ratio float64) TrackerOption {
	return func(t *Tracker) {
		t.threshold = ratio
	}
}

// WithTrackerLogger sets the logger. Defaults to slog.Default().
func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker creates a tracker with no items.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		threshold: DefaultThreshold,
		logger:    slog.Default(),
		states:    make(map[string]State),
		subs:      make(map[int]func(Transition)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Threshold returns the activation ratio.
func (t *Tracker) Threshold() float64 {
	return t.threshold
}

// Subscribe registers fn for every transition and returns a function that
// removes it.
func (t *Tracker) Subscribe(fn func(Transition)) (unsubscribe func()) {
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subOrder = append(t.subOrder, id)
	return func() {
		delete(t.subs, id)
		t.subOrder = slices.DeleteFunc(t.subOrder, func(v int) bool { return v == id })
	}
}

// Report applies a batch of observations and returns the resulting
// transitions. An item reported more than once takes its last observation,
// and only its net change across the batch is a transition. Deactivations
// are delivered before activations, each group in order of the item's first
// report, so a subscriber never sees two items active because of one scroll.
func (t *Tracker) Report(obs ...Observation) []Transition {
	var order []string
	final := make(map[string]State, len(obs))
	for _, o := range obs {
		next := Inactive
		if o.Ratio >= t.threshold {
			next = Active
		}
		if _, seen := final[o.ItemID]; !seen {
			order = append(order, o.ItemID)
		}
		final[o.ItemID] = next
	}

	var off, on []Transition
	for _, id := range order {
		// Unknown items start inactive.
		prev := t.states[id]
		next := final[id]
		t.states[id] = next
		if prev == next {
			continue
		}
		tr := Transition{ItemID: id, State: next}
		if next == Active {
			on = append(on, tr)
		} else {
			off = append(off, tr)
		}
	}

	transitions := append(off, on...)
	for _, tr := range transitions {
		t.logger.Debug("visibility transition", "item", tr.ItemID, "state", tr.State.String())
		t.notify(tr)
	}
	return transitions
}

// Remove stops tracking an item. An active item is deactivated first.
func (t *Tracker) Remove(itemID string) {
	state, ok := t.states[itemID]
	if !ok {
		return
	}
	delete(t.states, itemID)
	if state == Active {
		t.notify(Transition{ItemID: itemID, State: Inactive})
	}
}

// State returns the current state of an item. Unknown items are inactive.
func (t *Tracker) State(itemID string) State {
	return t.states[itemID]
}

// ActiveItems returns the active item ids, sorted.
func (t *Tracker) ActiveItems() []string {
	var ids []string
	for id, s := range t.states {
		if s == Active {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (t *Tracker) notify(tr Transition) {
	for _, id := range slices.Clone(t.subOrder) {
		if fn, ok := t.subs[id]; ok {
			fn(tr)
		}
	}
}
