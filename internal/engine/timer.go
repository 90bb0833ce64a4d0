package engine

import (
	"sync/atomic"
	"time"
)

// Timer is a pending callback scheduled through a Scheduler.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// Scheduler schedules callbacks after a delay. Callbacks run on the loop
// goroutine, never concurrently with other engine state transitions.
//
// Loop implements Scheduler with wall-clock timers. Tests substitute a
// logical clock (testutil.ManualClock) so debounce behavior is deterministic.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// loopTimer is a wall-clock timer whose expiry is delivered through the queue.
type loopTimer struct {
	loop  *Loop
	timer *time.Timer
	// state: 0 pending, 1 fired (posted), 2 stopped.
	state atomic.Int32
}

// AfterFunc schedules fn to run on the loop goroutine after d.
// A pending timer keeps Settle waiting until it fires or is stopped.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{loop: l}
	l.pending.Add(1)
	t.timer = time.AfterFunc(d, func() {
		if !t.state.CompareAndSwap(0, 1) {
			return
		}
		if !l.enqueue(Event{Type: EventTypeTimer, Name: "timer", fn: func() {
			l.pending.Add(-1)
			fn()
		}}) {
			l.pending.Add(-1)
		}
	})
	return t
}

func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(0, 2) {
		return false
	}
	t.timer.Stop()
	t.loop.pending.Add(-1)
	t.loop.wake()
	return true
}
