package harness

import (
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/reelfeed/internal/model"
)

// TraceEvent records one scenario step and what the engine did while
// applying it.
//
// Completions of concurrent remote calls may be applied in any order, so
// Events counts them by name instead of listing them; Seq is the loop's
// logical clock after the step, which depends only on how many events ran.
type TraceEvent struct {
	Step      int            `json:"step"`
	Op        string         `json:"op"`
	Arg       string         `json:"arg,omitempty"`
	Outcome   string         `json:"outcome"`
	Seq       int64          `json:"seq"`
	Events    map[string]int `json:"events,omitempty"`
	Items     int            `json:"items"`
	Indicator string         `json:"indicator"`
}

// Object returns the canonical form of the event.
func (e TraceEvent) Object() model.Object {
	obj := model.Object{
		"step":      model.Int(e.Step),
		"op":        model.String(e.Op),
		"outcome":   model.String(e.Outcome),
		"seq":       model.Int(e.Seq),
		"items":     model.Int(e.Items),
		"indicator": model.String(e.Indicator),
	}
	if e.Arg != "" {
		obj["arg"] = model.String(e.Arg)
	}
	if len(e.Events) > 0 {
		events := make(model.Object, len(e.Events))
		for name, n := range e.Events {
			events[name] = model.Int(n)
		}
		obj["events"] = events
	}
	return obj
}

// EventNames returns the distinct event names of the step, sorted.
func (e TraceEvent) EventNames() []string {
	names := make([]string, 0, len(e.Events))
	for name := range e.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Summary renders the trace one step per line, for failure messages.
func (r *Result) Summary() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString("  [")
		b.WriteString(strconv.Itoa(e.Step))
		b.WriteString("] ")
		b.WriteString(e.Op)
		if e.Arg != "" {
			b.WriteString(" " + e.Arg)
		}
		b.WriteString(" -> " + e.Outcome)
		if names := e.EventNames(); len(names) > 0 {
			b.WriteString(" {" + strings.Join(names, ", ") + "}")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
