package engine

import "sync"

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeCommand is work posted by a caller (user input, CLI command).
	EventTypeCommand EventType = iota + 1
	// EventTypeCompletion delivers the result of an asynchronous remote call.
	EventTypeCompletion
	// EventTypeTimer delivers an expired timer.
	EventTypeTimer
)

// String returns the trace name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTypeCommand:
		return "command"
	case EventTypeCompletion:
		return "completion"
	case EventTypeTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Event is a unit of work applied on the loop goroutine.
type Event struct {
	Type EventType
	Name string
	fn   func()
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded; completions may arrive in bursts from many
// worker goroutines and must never block them.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in Run and Settle.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the closure can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Peek returns the head of the queue without removing it.
func (q *eventQueue) Peek() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Notify wakes a waiter without adding an event.
func (q *eventQueue) Notify() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
