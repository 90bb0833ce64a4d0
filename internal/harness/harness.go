package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/feed"
	"github.com/roach88/reelfeed/internal/likes"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/testutil"
	"github.com/roach88/reelfeed/internal/visibility"
)

// SettleTimeout bounds how long a step may wait for remote work.
const SettleTimeout = 5 * time.Second

// Harness drives one scenario.
type Harness struct {
	loop    *engine.Loop
	clock   *testutil.ManualClock
	remote  *testutil.FakeRemote
	session *feed.Session
	players map[string]*Player
	logger  *slog.Logger

	// events collects the names of events applied during the current step.
	events map[string]int
}

// Player is a recording player attached to a scenario item.
type Player struct {
	Reject bool
	Plays  int
	Pauses int
}

// Play records a play, failing if the player rejects autoplay.
func (p *Player) Play() error {
	if p.Reject {
		return visibility.ErrAutoplayRejected
	}
	p.Plays++
	return nil
}

// Pause records a pause.
func (p *Player) Pause() { p.Pauses++ }

// Run executes a scenario and evaluates its assertions.
// The returned error reports a harness failure (a step that never settled);
// assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	h, err := New(scenario)
	if err != nil {
		return nil, err
	}
	defer h.session.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.Apply(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		event.Step = i
		result.AddTrace(event)
	}

	for _, msg := range EvaluateAssertions(h, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// New seeds a fake remote from the scenario setup and wires a session.
func New(scenario *Scenario) (*Harness, error) {
	h := &Harness{
		clock:   testutil.NewManualClock(),
		remote:  testutil.NewFakeRemote(),
		players: make(map[string]*Player),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		events:  make(map[string]int),
	}
	h.loop = engine.New(
		engine.WithLogger(h.logger),
		engine.WithTracer(func(r engine.Record) {
			h.events[r.Name]++
		}))

	setup := scenario.Setup
	h.remote.SeedListings(setup.Listings)
	for _, id := range setup.Sold {
		h.remote.SetStatus(id, model.StatusSold)
	}
	for _, l := range setup.Likes {
		h.remote.SetLike(l.Listing, l.User, true)
	}

	cfg := scenario.Config
	opts := feed.Options{
		PageSize:            cfg.PageSize,
		VisibilityThreshold: cfg.VisibilityThreshold,
		SentinelThreshold:   cfg.SentinelThreshold,
		LoadLikes:           cfg.LoadLikes,
		Scheduler:           h.clock,
		Now:                 func() time.Time { return testutil.FakeEpoch.Add(h.clock.Now()) },
		Logger:              h.logger,
	}
	if cfg.LikePolicy != "" {
		policy, err := likes.ParsePolicy(cfg.LikePolicy)
		if err != nil {
			return nil, err
		}
		opts.LikePolicy = policy
	}
	if cfg.Debounce != "" {
		d, err := time.ParseDuration(cfg.Debounce)
		if err != nil {
			return nil, fmt.Errorf("config.debounce: %w", err)
		}
		opts.Debounce = d
	}

	h.session = feed.New(context.Background(), h.loop, h.remote, model.User{ID: setup.User}, opts)
	for _, id := range setup.Players {
		h.players[id] = &Player{}
	}
	for _, id := range setup.RejectAutoplay {
		if p, ok := h.players[id]; ok {
			p.Reject = true
		}
	}
	for _, id := range setup.Players {
		h.session.AttachPlayer(id, h.players[id])
	}
	return h, nil
}

// Session returns the session under test.
func (h *Harness) Session() *feed.Session { return h.session }

// Remote returns the scripted remote.
func (h *Harness) Remote() *testutil.FakeRemote { return h.remote }

// Player returns the recording player of an item.
func (h *Harness) Player(id string) (*Player, bool) {
	p, ok := h.players[id]
	return p, ok
}

// Apply performs one step, waits for the remote work it started and
// returns the step's trace event.
func (h *Harness) Apply(step Step) (TraceEvent, error) {
	h.events = make(map[string]int)
	emitted := h.session.FilterEmissions()
	s := h.session

	outcome := "ok"
	switch step.Op {
	case OpStart:
		outcome = started(s.Start())
	case OpSearch:
		s.SetSearch(step.Text)
	case OpCategory:
		s.SetCategory(step.Text)
	case OpMinPrice:
		s.SetMinPrice(step.Text)
	case OpMaxPrice:
		s.SetMaxPrice(step.Text)
	case OpFlush:
		s.FlushSearch()
	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return TraceEvent{}, err
		}
		h.clock.Advance(d)
	case OpSentinel:
		outcome = started(s.Sentinel(*step.Visible))
	case OpFetch:
		outcome = started(s.FetchNext())
	case OpRetry:
		outcome = started(s.Retry())
	case OpSettle:
	case OpLoadLike:
		outcome = started(s.LoadLike(step.Listing))
	case OpToggleLike:
		outcome = errOutcome(s.ToggleLike(step.Listing))
	case OpFailNext:
		h.remote.FailNext(step.Remote, injected(step.Remote, step.Error))
	case OpHold:
		h.remote.Hold(step.Remote)
	case OpRelease:
		h.remote.Release(step.Remote)
	case OpVisibility:
		obs := make([]visibility.Observation, len(step.Observations))
		for i, o := range step.Observations {
			obs[i] = visibility.Observation{ItemID: o.Item, Ratio: o.Ratio}
		}
		outcome = strconv.Itoa(len(s.Report(obs...))) + " transitions"
	case OpTogglePlay:
		state, err := s.TogglePlay(step.Listing)
		outcome = state.String()
		if errors.Is(err, visibility.ErrAutoplayRejected) {
			outcome = "rejected"
		}
	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	if err := h.settle(); err != nil {
		return TraceEvent{}, err
	}

	switch step.Op {
	case OpSearch, OpCategory, OpMinPrice, OpMaxPrice, OpFlush, OpAdvance:
		switch {
		case s.FilterEmissions() > emitted:
			outcome = "emitted"
		case s.SearchPending():
			outcome = "debouncing"
		}
	}

	events := h.events
	h.events = make(map[string]int)
	return TraceEvent{
		Op:        step.Op,
		Arg:       stepArg(step),
		Outcome:   outcome,
		Seq:       h.loop.Clock().Current(),
		Events:    events,
		Items:     len(s.Items()),
		Indicator: string(s.Indicator()),
	}, nil
}

// settle applies events until all remote work has finished except calls
// deliberately held by the scenario.
func (h *Harness) settle() error {
	deadline := time.Now().Add(SettleTimeout)
	for {
		h.loop.Drain()
		if h.loop.Pending() <= int64(h.held()) {
			if h.loop.Drain() == 0 {
				return nil
			}
			continue
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("remote work did not settle within %s (%d pending, %d held)",
				SettleTimeout, h.loop.Pending(), h.held())
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *Harness) held() int {
	n := 0
	for _, op := range remoteOps {
		n += h.remote.Held(op)
	}
	return n
}

func started(ok bool) string {
	if ok {
		return "started"
	}
	return "skipped"
}

func errOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, likes.ErrMutationPending):
		return "pending"
	default:
		return strings.ToLower(string(model.CodeOf(err)))
	}
}

func injected(op, kind string) error {
	switch kind {
	case "not_found":
		return model.NewNotFoundError(op, "not found")
	case "conflict":
		return model.NewConflictError(op, "conflict")
	case "unauthorized":
		return model.NewUnauthorizedError(op, "unauthorized")
	case "validation":
		return model.NewValidationError(op, "rejected", nil)
	default:
		return testutil.ErrRemoteDown
	}
}

func stepArg(step Step) string {
	switch step.Op {
	case OpSearch, OpCategory, OpMinPrice, OpMaxPrice:
		return step.Text
	case OpAdvance:
		return step.Duration
	case OpSentinel:
		if *step.Visible {
			return "visible"
		}
		return "hidden"
	case OpLoadLike, OpToggleLike, OpTogglePlay:
		return step.Listing
	case OpFailNext:
		return step.Remote + ":" + step.Error
	case OpHold, OpRelease:
		return step.Remote
	case OpVisibility:
		parts := make([]string, len(step.Observations))
		for i, o := range step.Observations {
			parts[i] = o.Item + "=" + strconv.FormatFloat(o.Ratio, 'f', -1, 64)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
