// Package feed assembles the feed engine for one user: filter normalizer,
// page cache and controller, scroll trigger, like engine and playback
// coordinator, all driven by one event loop.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/filter"
	"github.com/roach88/reelfeed/internal/likes"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/pagination"
	"github.com/roach88/reelfeed/internal/remote"
	"github.com/roach88/reelfeed/internal/scroll"
	"github.com/roach88/reelfeed/internal/visibility"
)

// Options tunes a Session. Zero values take the package defaults.
type Options struct {
	PageSize            int
	Debounce            time.Duration
	StaleAfter          time.Duration
	VisibilityThreshold float64
	SentinelThreshold   float64
	LikePolicy          likes.Policy
	LikeStaleAfter      time.Duration

	// LoadLikes loads like state for every listing of every new page.
	LoadLikes bool

	// Scheduler runs debounce timers. Defaults to the loop.
	Scheduler engine.Scheduler

	// Now is the wall clock for cache staleness. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Session is the feed engine for one user.
//
// Not safe for concurrent use: call it from the goroutine that drives the
// loop (between Settle calls, or through Loop.Post while Run is active).
type Session struct {
	ctx    context.Context
	loop   *engine.Loop
	user   model.User
	logger *slog.Logger

	normalizer  *filter.Normalizer
	cache       *pagination.Cache
	controller  *pagination.Controller
	trigger     *scroll.Trigger
	likes       *likes.Engine
	tracker     *visibility.Tracker
	coordinator *visibility.Coordinator

	likeErr error
}

// New wires a session for user on loop. ctx bounds every remote call.
func New(ctx context.Context, loop *engine.Loop, r remote.Collaborator, user model.User, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = loop
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = filter.DefaultDebounce
	}

	s := &Session{ctx: ctx, loop: loop, user: user, logger: logger}

	s.cache = pagination.NewCache(pagination.WithStaleAfter(opts.StaleAfter), pagination.WithNow(now))
	s.controller = pagination.NewController(loop, s.cache, r,
		pagination.WithPageSize(opts.PageSize),
		pagination.WithLogger(logger),
		pagination.OnPage(func(_ *pagination.Entry, p model.Page) {
			if !opts.LoadLikes {
				return
			}
			for _, l := range p.Items {
				s.likes.Load(s.ctx, l.ID, s.user)
			}
		}),
	)

	triggerOpts := []scroll.Option{scroll.WithLogger(logger)}
	if opts.SentinelThreshold > 0 {
		triggerOpts = append(triggerOpts, scroll.WithThreshold(opts.SentinelThreshold))
	}
	s.trigger = scroll.New(s.controller, triggerOpts...)

	policy := opts.LikePolicy
	if policy == "" {
		policy = likes.PolicyKeep
	}
	s.likes = likes.New(loop, r,
		likes.WithPolicy(policy),
		likes.WithStaleAfter(opts.LikeStaleAfter),
		likes.WithNow(now),
		likes.WithLogger(logger),
		likes.OnError(func(_ string, err error) {
			s.likeErr = err
		}),
	)

	trackerOpts := []visibility.TrackerOption{visibility.WithTrackerLogger(logger)}
	if opts.VisibilityThreshold > 0 {
		trackerOpts = append(trackerOpts, visibility.WithThreshold(opts.VisibilityThreshold))
	}
	s.tracker = visibility.NewTracker(trackerOpts...)
	s.coordinator = visibility.NewCoordinator(s.tracker, visibility.WithCoordinatorLogger(logger))

	s.normalizer = filter.New(sched, s.onFilter,
		filter.WithDebounce(debounce),
		filter.WithLogger(logger))

	return s
}

// onFilter starts the first page of a newly emitted filter.
func (s *Session) onFilter(f model.Filter) {
	s.controller.FetchNext(s.ctx, f)
}

// Start requests the next page of the current (initially unfiltered) filter,
// page 0 on a fresh session.
func (s *Session) Start() bool {
	return s.controller.FetchNext(s.ctx, s.normalizer.Current())
}

// Suspend takes the list off screen. Its pages are kept for the next Start,
// which refetches from page 0 only if they have been idle for StaleAfter.
func (s *Session) Suspend() {
	s.cache.Deactivate()
	s.trigger.Reset()
}

// User returns the session's user.
func (s *Session) User() model.User { return s.user }

// Loop returns the event loop driving the session.
func (s *Session) Loop() *engine.Loop { return s.loop }

// SetSearch records search text; it takes effect after the debounce window.
func (s *Session) SetSearch(text string) { s.normalizer.SetSearch(text) }

// SetCategory changes the category immediately.
func (s *Session) SetCategory(category string) { s.normalizer.SetCategory(category) }

// SetMinPrice sets the lower price bound from euro text; invalid text clears it.
func (s *Session) SetMinPrice(text string) { s.normalizer.SetMinPrice(text) }

// SetMaxPrice sets the upper price bound from euro text; invalid text clears it.
func (s *Session) SetMaxPrice(text string) { s.normalizer.SetMaxPrice(text) }

// SetFilter replaces the raw filter; search is still debounced.
func (s *Session) SetFilter(state model.FilterState) { s.normalizer.Set(state) }

// ApplyFilter replaces the raw filter and applies it at once, search
// included.
func (s *Session) ApplyFilter(state model.FilterState) { s.normalizer.Apply(state) }

// FlushSearch applies a pending search edit now.
func (s *Session) FlushSearch() { s.normalizer.Flush() }

// FilterEmissions returns how many normalized filters have been applied.
func (s *Session) FilterEmissions() int { return s.normalizer.Emitted() }

// SearchPending reports whether a search edit is waiting for quiescence.
func (s *Session) SearchPending() bool { return s.normalizer.Pending() }

// Filter returns the filter currently applied.
func (s *Session) Filter() model.Filter { return s.normalizer.Current() }

// Sentinel reports the end-of-list sentinel's visibility.
func (s *Session) Sentinel(visible bool) bool { return s.trigger.Observe(s.ctx, visible) }

// FetchNext requests the next page of the current filter directly.
func (s *Session) FetchNext() bool {
	return s.controller.FetchNext(s.ctx, s.normalizer.Current())
}

// Retry re-issues a failed page fetch.
func (s *Session) Retry() bool { return s.controller.Retry(s.ctx) }

// Items returns the listings fetched so far for the current filter.
func (s *Session) Items() []model.Listing {
	if e, ok := s.cache.Active(); ok {
		return e.Items()
	}
	return nil
}

// Pages returns the fetched pages of the current filter.
func (s *Session) Pages() []model.Page {
	if e, ok := s.cache.Active(); ok {
		return e.Pages()
	}
	return nil
}

// Exhausted reports whether every page of the current filter is fetched.
func (s *Session) Exhausted() bool { return s.trigger.Inert() }

// Fetching reports whether a page request is in flight.
func (s *Session) Fetching() bool {
	e, ok := s.cache.Active()
	return ok && e.Fetching()
}

// Indicator returns the end-of-list indicator.
func (s *Session) Indicator() scroll.Indicator { return s.trigger.Indicator() }

// FetchError returns the error of the current filter's last failed page
// fetch, cleared by the next successful one.
func (s *Session) FetchError() error {
	if e, ok := s.cache.Active(); ok {
		return e.LastError()
	}
	return nil
}

// LoadLike loads the like state of a listing.
func (s *Session) LoadLike(listingID string) bool {
	return s.likes.Load(s.ctx, listingID, s.user)
}

// ToggleLike flips the like on a listing. See likes.Engine.Toggle.
func (s *Session) ToggleLike(listingID string) error {
	s.likeErr = nil
	return s.likes.Toggle(s.ctx, listingID, s.user)
}

// LikeState returns the like state of a listing.
func (s *Session) LikeState(listingID string) model.LikeState {
	st, _ := s.likes.State(listingID, s.user)
	return st
}

// LikeError returns the error of the last failed toggle.
func (s *Session) LikeError() error { return s.likeErr }

// Report applies item visibility observations.
func (s *Session) Report(obs ...visibility.Observation) []visibility.Transition {
	return s.tracker.Report(obs...)
}

// AttachPlayer registers the player of an item.
func (s *Session) AttachPlayer(itemID string, p visibility.Player) {
	s.coordinator.Register(itemID, p)
}

// DetachPlayer unregisters an item's player.
func (s *Session) DetachPlayer(itemID string) { s.coordinator.Unregister(itemID) }

// TogglePlay is the manual play/pause control.
func (s *Session) TogglePlay(itemID string) (visibility.PlayState, error) {
	return s.coordinator.Toggle(itemID)
}

// Playing returns the ids of playing items, sorted.
func (s *Session) Playing() []string { return s.coordinator.PlayingItems() }

// Close pauses all playback and detaches from the tracker.
func (s *Session) Close() { s.coordinator.Close() }
