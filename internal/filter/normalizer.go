// Package filter debounces raw filter edits into normalized filters.
package filter

import (
	"log/slog"
	"time"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
)

// DefaultDebounce is the quiescence window for search text.
const DefaultDebounce = 300 * time.Millisecond

// Normalizer turns raw filter edits into normalized filters.
//
// Search edits are debounced: each edit inside the window supersedes the
// previous one and restarts the window; when input pauses for the full
// window the latest text is emitted. Category and price edits emit
// immediately with the last settled search text.
//
// Normalizer never fails. Invalid price text means "no bound".
// Not safe for concurrent use; call it from the loop goroutine.
type Normalizer struct {
	sched  engine.Scheduler
	window time.Duration
	emit   func(model.Filter)
	logger *slog.Logger

	settled model.FilterState // search text here is the last settled value
	pending *string           // search text waiting for quiescence
	timer   engine.Timer
	gen     uint64

	current model.Filter
	emitted int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDebounce overrides the search quiescence window.
func WithDebounce(d time.Duration) Option {
	return func(n *Normalizer) {
		n.window = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

// New creates a Normalizer that reports each emission to emit.
// The initial filter is the unfiltered one and is not emitted.
func New(sched engine.Scheduler, emit func(model.Filter), opts ...Option) *Normalizer {
	n := &Normalizer{
		sched:  sched,
		window: DefaultDebounce,
		emit:   emit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.current = model.Normalize(n.settled)
	return n
}

// SetSearch records a search edit and restarts the debounce window.
func (n *Normalizer) SetSearch(text string) {
	n.pending = &text
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.timer = n.sched.AfterFunc(n.window, func() {
		// A superseded timer may still be delivered if it fired before Stop.
		if gen != n.gen {
			return
		}
		n.settle()
	})
}

// SetCategory changes the category and emits immediately.
func (n *Normalizer) SetCategory(category string) {
	n.settled.Category = category
	n.publish()
}

// SetMinPrice parses text as a euro amount and emits immediately.
func (n *Normalizer) SetMinPrice(text string) {
	n.settled.MinPrice = ParsePrice(text)
	n.publish()
}

// SetMaxPrice parses text as a euro amount and emits immediately.
func (n *Normalizer) SetMaxPrice(text string) {
	n.settled.MaxPrice = ParsePrice(text)
	n.publish()
}

// Set replaces the whole raw state; search is still debounced.
func (n *Normalizer) Set(state model.FilterState) {
	n.settled.Category = state.Category
	n.settled.MinPrice = state.MinPrice
	n.settled.MaxPrice = state.MaxPrice
	if state.Search != n.settled.Search || n.pending != nil {
		n.SetSearch(state.Search)
	}
	n.publish()
}

// Apply replaces the whole raw state and emits once, without waiting for
// the debounce window. A pending search edit is discarded.
func (n *Normalizer) Apply(state model.FilterState) {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.pending = nil
	n.settled = state
	n.publish()
}

// Flush settles a pending search edit immediately.
func (n *Normalizer) Flush() {
	if n.pending == nil {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	n.settle()
}

// Pending reports whether a search edit is waiting for quiescence.
func (n *Normalizer) Pending() bool {
	return n.pending != nil
}

// Current returns the last emitted filter.
func (n *Normalizer) Current() model.Filter {
	return n.current
}

// Emitted returns how many filters have been emitted.
func (n *Normalizer) Emitted() int {
	return n.emitted
}

func (n *Normalizer) settle() {
	if n.pending == nil {
		return
	}
	n.settled.Search = *n.pending
	n.pending = nil
	n.timer = nil
	n.publish()
}

func (n *Normalizer) publish() {
	n.current = model.Normalize(n.settled)
	n.emitted++
	metrics.FilterEmissions.Inc()
	n.logger.Debug("filter emitted",
		"search", n.current.Search,
		"category", n.current.Category,
		"signature", n.current.Signature()[:12])
	if n.emit != nil {
		n.emit(n.current)
	}
}
