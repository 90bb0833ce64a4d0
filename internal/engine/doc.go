// Package engine implements the event loop that drives the feed engine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All feed state (filter, page cache, like states, playback) is mutated by
// one goroutine at a time. This ensures:
//   - no locks in the engine components
//   - a remote response is applied as one atomic step
//   - a trace of applied events is reproducible under a scripted remote
//
// Event Processing Flow:
//  1. Commands are posted (Post), remote work is started (Go) and timers
//     are armed (AfterFunc)
//  2. Remote work runs on its own goroutine and returns a continuation
//  3. The continuation, or the timer callback, is enqueued as an event
//  4. Run, Settle, Step or Drain applies queued events in FIFO order
//
// Responses may arrive in any order. Components tag requests (filter
// signature, page index) and discard stale continuations themselves.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every applied event is stamped with a seq from Clock.Next(). Traces use
// seq, never wall-clock time.
//
// Schedulers:
// Debounce windows go through the Scheduler interface. Loop schedules on
// the wall clock; tests substitute a manual clock.
//
// Quota:
// WithMaxSteps bounds a single Settle call so a continuation that keeps
// starting work fails instead of spinning.
package engine
