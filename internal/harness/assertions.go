package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/reelfeed/internal/model"
)

// AssertionError describes a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s\n", e.Type, e.Expected, e.Actual)
	if e.Trace != "" {
		msg += "\nTrace:\n" + e.Trace
	}
	return msg
}

// EvaluateAssertions checks every assertion against the harness state and
// returns the failure messages.
func EvaluateAssertions(h *Harness, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(h, result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(h *Harness, result *Result, a Assertion) error {
	s := h.session
	fail := func(expected, actual any) error {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprint(expected),
			Actual:   fmt.Sprint(actual),
			Trace:    result.Summary(),
		}
	}

	switch a.Type {
	case AssertItemsCount:
		if got := len(s.Items()); got != *a.Count {
			return fail(*a.Count, got)
		}
	case AssertItems:
		got := make([]string, 0, len(s.Items()))
		for _, l := range s.Items() {
			got = append(got, l.ID)
		}
		want := a.Items
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(got, want) {
			return fail(want, got)
		}
	case AssertExhausted:
		if got := s.Exhausted(); got != *a.Value {
			return fail(*a.Value, got)
		}
	case AssertIndicator:
		if got := string(s.Indicator()); got != a.Indicator {
			return fail(a.Indicator, got)
		}
	case AssertRemoteCalls:
		if got := h.remote.Calls(a.Remote); got != *a.Count {
			return fail(fmt.Sprintf("%d %s calls", *a.Count, a.Remote), fmt.Sprintf("%d", got))
		}
	case AssertLikeState:
		st := s.LikeState(a.Listing)
		if a.Liked != nil && st.LikedByCurrentUser != *a.Liked {
			return fail(fmt.Sprintf("liked=%t", *a.Liked), fmt.Sprintf("liked=%t", st.LikedByCurrentUser))
		}
		if a.Count != nil && st.TotalCount != int64(*a.Count) {
			return fail(fmt.Sprintf("count=%d", *a.Count), fmt.Sprintf("count=%d", st.TotalCount))
		}
	case AssertPlaying:
		got := s.Playing()
		want := a.Items
		if want == nil {
			want = []string{}
		}
		if got == nil {
			got = []string{}
		}
		if !slices.Equal(got, want) {
			return fail(want, got)
		}
	case AssertErrorCode:
		var err error
		if a.Source == "fetch" {
			err = s.FetchError()
		} else {
			err = s.LikeError()
		}
		if got := string(model.CodeOf(err)); got != a.Code {
			return fail(fmt.Sprintf("%s error %q", a.Source, a.Code), fmt.Sprintf("%q", got))
		}
	case AssertTraceContains:
		for _, e := range result.Trace {
			if e.Events[a.Event] > 0 {
				return nil
			}
		}
		return fail("event "+a.Event, "not found in trace")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
