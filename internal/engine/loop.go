package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Loop is the single-writer event loop that owns all feed engine state.
//
// ARCHITECTURE:
//   - Callers post commands (Post) or start remote work (Go).
//   - Remote work runs on its own goroutine; its continuation is posted back
//     as a completion event.
//   - Timers (AfterFunc) are delivered as timer events.
//   - Events are applied one at a time, in FIFO order, by whichever goroutine
//     is running Run or Settle. That goroutine is "the loop goroutine".
//
// CRITICAL: engine components (pagination, likes, visibility, filter) are
// not safe for concurrent use. Call them only from the loop goroutine, either
// directly between Settle calls or through Post while Run is active.
type Loop struct {
	queue  *eventQueue
	clock  *Clock
	logger *slog.Logger
	tracer func(Record)

	// maxSteps bounds the events applied by one Settle call; 0 is unlimited.
	maxSteps int

	// pending counts posted-but-unapplied async work and armed timers.
	pending atomic.Int64
}

// Runner starts remote work whose continuation runs on the loop goroutine.
// Loop implements Runner.
type Runner interface {
	Go(ctx context.Context, name string, work func(ctx context.Context) func())
}

// Record describes an applied event, reported to the tracer.
type Record struct {
	Seq  int64
	Type EventType
	Name string
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(loop *Loop) {
		loop.logger = l
	}
}

// WithTracer registers a callback invoked after each event is applied.
func WithTracer(fn func(Record)) Option {
	return func(loop *Loop) {
		loop.tracer = fn
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(c *Clock) Option {
	return func(loop *Loop) {
		loop.clock = c
	}
}

// WithMaxSteps makes Settle fail with StepsExceededError after n events.
func WithMaxSteps(n int) Option {
	return func(loop *Loop) {
		loop.maxSteps = n
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		queue:  newEventQueue(),
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the loop's logical clock.
func (l *Loop) Clock() *Clock {
	return l.clock
}

// Post schedules fn to run on the loop goroutine.
// Thread-safe. Returns false if the loop has been stopped.
func (l *Loop) Post(name string, fn func()) bool {
	return l.enqueue(Event{Type: EventTypeCommand, Name: name, fn: fn})
}

// Go runs work on a new goroutine and applies the continuation it returns
// on the loop goroutine. A nil continuation is allowed.
//
// There is no hard cancellation: ctx is handed to work, and callers discard
// stale results in the continuation.
func (l *Loop) Go(ctx context.Context, name string, work func(ctx context.Context) func()) {
	l.pending.Add(1)
	go func() {
		done := work(ctx)
		ok := l.enqueue(Event{Type: EventTypeCompletion, Name: name, fn: func() {
			l.pending.Add(-1)
			if done != nil {
				done()
			}
		}})
		if !ok {
			l.pending.Add(-1)
			l.logger.Debug("completion dropped: loop stopped", "event", name)
		}
	}()
}

func (l *Loop) enqueue(e Event) bool {
	return l.queue.Enqueue(e)
}

func (l *Loop) wake() {
	l.queue.Notify()
}

// Pending returns the number of outstanding async tasks and armed timers.
func (l *Loop) Pending() int64 {
	return l.pending.Load()
}

// Run applies events until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("event loop starting")

	for {
		if event, ok := l.queue.TryDequeue(); ok {
			l.apply(event)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("event loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			if l.queue.Closed() && l.queue.Len() == 0 {
				l.logger.Debug("event loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Settle applies events on the calling goroutine until the queue is empty
// and no async work or timer is outstanding. It is the synchronous driver
// used by the CLI and by tests.
//
// With WithMaxSteps, Settle stops before the event that would exceed the
// quota and returns a StepsExceededError; that event stays queued.
func (l *Loop) Settle(ctx context.Context) error {
	quota := NewQuota(l.maxSteps)
	for {
		if next, ok := l.queue.Peek(); ok {
			if err := quota.Check(next.Name); err != nil {
				l.logger.Warn("settle quota exceeded", "event", next.Name, "limit", quota.MaxSteps())
				return err
			}
			if event, ok := l.queue.TryDequeue(); ok {
				l.apply(event)
			}
			continue
		}
		if l.pending.Load() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.queue.Wait():
			if l.queue.Closed() && l.queue.Len() == 0 {
				return ErrStopped
			}
		}
	}
}

// Step blocks until one event is available and applies it.
// Use it when other work is deliberately held and Settle would never return.
func (l *Loop) Step(ctx context.Context) error {
	for {
		if event, ok := l.queue.TryDequeue(); ok {
			l.apply(event)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.queue.Wait():
			if l.queue.Closed() && l.queue.Len() == 0 {
				return ErrStopped
			}
		}
	}
}

// Drain applies the events already queued without waiting for more.
// It returns the number of events applied.
func (l *Loop) Drain() int {
	n := 0
	for {
		event, ok := l.queue.TryDequeue()
		if !ok {
			return n
		}
		l.apply(event)
		n++
	}
}

// Stop closes the queue. Run returns once the remaining events are applied.
func (l *Loop) Stop() {
	l.queue.Close()
}

// apply runs one event.
// CRITICAL: called only from Run or Settle; single-writer guarantee.
func (l *Loop) apply(event Event) {
	seq := l.clock.Next()
	defer func() {
		if r := recover(); r != nil {
			// Log and continue; one faulty handler must not wedge the loop.
			l.logger.Error("event handler panicked",
				"seq", seq,
				"type", event.Type.String(),
				"event", event.Name,
				"panic", r)
		}
	}()

	if event.fn != nil {
		event.fn()
	}
	if l.tracer != nil {
		l.tracer(Record{Seq: seq, Type: event.Type, Name: event.Name})
	}
}
