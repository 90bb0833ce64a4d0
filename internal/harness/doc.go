// Package harness replays YAML feed scenarios against a scripted remote and
// a manual clock, producing a deterministic trace.
//
// Scenario format:
//
//	name: scroll_to_end
//	description: "Paginates to exhaustion through the sentinel"
//	config:
//	  page_size: 2
//	setup:
//	  listings: 5
//	  user: user-alice
//	steps:
//	  - op: start
//	  - op: sentinel
//	    visible: true
//	assertions:
//	  - type: items_count
//	    count: 4
//	  - type: indicator
//	    indicator: idle
//
// Every step is followed by a settle: remote work it started runs to
// completion unless the scenario holds that remote operation. Debounce
// timers only fire on an explicit advance step.
//
// The trace has one canonical JSON line per step:
//
//	{"arg":"visible","events":{"fetch_page:1":1},"indicator":"idle","items":4,"op":"sentinel","outcome":"started","seq":2,"step":1}
//
// Events counts the engine events applied during the step by name; seq is
// the loop's logical clock afterwards. Both are independent of goroutine
// scheduling, so golden traces are stable.
package harness
