package testutil

import (
	"slices"
	"sync"
	"time"

	"github.com/roach88/reelfeed/internal/engine"
)

// ManualClock is a logical time source for tests. It implements
// engine.Scheduler; timers fire only when Advance moves time past their
// deadline, synchronously on the goroutine calling Advance.
//
// Because callbacks run on the caller, a test that drives components and
// calls Advance from one goroutine keeps the engine's single-writer model.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int64
	timers []*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Duration
	seq      int64
	fn       func()
	stopped  bool
	fired    bool
}

// NewManualClock creates a clock at logical time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now returns the logical time elapsed since creation.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn at Now()+d.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) engine.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{clock: c, deadline: c.now + d, seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing due timers in deadline order.
// Timers scheduled by a callback fire too if they fall within the window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
}

// nextDue removes and returns the earliest live timer at or before target,
// moving the clock to its deadline.
func (c *ManualClock) nextDue(target time.Duration) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live

	slices.SortFunc(c.timers, func(a, b *manualTimer) int {
		if a.deadline != b.deadline {
			if a.deadline < b.deadline {
				return -1
			}
			return 1
		}
		return int(a.seq - b.seq)
	})

	if len(c.timers) == 0 || c.timers[0].deadline > target {
		return nil
	}
	t := c.timers[0]
	t.fired = true
	c.timers = c.timers[1:]
	c.now = t.deadline
	return t
}

// Pending returns the number of armed timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
