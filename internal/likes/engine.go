// Package likes holds per-user like state and applies like toggles
// optimistically.
//
// INVARIANTS:
//   - At most one toggle is outstanding per (listing, user); further toggles
//     are rejected with ErrMutationPending and make no remote call.
//   - TotalCount is never negative.
//   - A load that overlaps a toggle never overwrites the toggle's state.
//   - An unauthenticated user never likes anything and never reaches the
//     remote.
//
// Not safe for concurrent use; all calls happen on the loop goroutine.
package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
)

// OpToggleLike names the toggle in errors and logs.
const OpToggleLike = "toggle_like"

// FailureMessage is the user-facing message of a failed toggle.
const FailureMessage = "Failed to update like status"

// ErrMutationPending rejects a toggle while another for the same pair is
// outstanding.
var ErrMutationPending = errors.New("like mutation pending")

// Policy decides what a failed toggle leaves behind.
type Policy string

const (
	// PolicyKeep leaves the optimistic state in place.
	PolicyKeep Policy = "keep"
	// PolicyRollback restores the state from before the toggle.
	PolicyRollback Policy = "rollback"
)

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyKeep, PolicyRollback:
		return p, nil
	case "":
		return PolicyKeep, nil
	default:
		return "", fmt.Errorf("unknown like failure policy %q (want keep or rollback)", s)
	}
}

type key struct {
	listingID string
	userID    string
}

type entry struct {
	state   model.LikeState
	loaded  time.Time
	loading bool
	pending bool
	lastErr error
	// gen is bumped by every toggle; a load whose captured gen differs
	// read the server before or during that toggle.
	gen uint64
}

// Engine is the like mutation engine.
type Engine struct {
	runner     engine.Runner
	service    remote.LikeService
	policy     Policy
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
	entries    map[key]*entry

	onChange func(model.LikeState)
	onError  func(listingID string, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the failure policy. Defaults to PolicyKeep.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithStaleAfter makes Load refetch states older than d. Zero never refetches.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) {
		e.staleAfter = d
	}
}

// WithNow sets the time source used for staleness.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// OnChange registers a callback for every state change.
func OnChange(fn func(model.LikeState)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// OnError registers a callback for failed toggles.
func OnError(fn func(listingID string, err error)) Option {
	return func(e *Engine) {
		e.onError = fn
	}
}

// New creates an engine issuing remote calls through runner.
func New(runner engine.Runner, service remote.LikeService, opts ...Option) *Engine {
	e := &Engine{
		runner:  runner,
		service: service,
		policy:  PolicyKeep,
		now:     time.Now,
		logger:  slog.Default(),
		entries: make(map[key]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the failure policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) entry(listingID string, user model.User) *entry {
	k := key{listingID, user.ID}
	en, ok := e.entries[k]
	if !ok {
		en = &entry{state: model.LikeState{ListingID: listingID}}
		e.entries[k] = en
	}
	return en
}

// State returns the cached state of a listing for user.
func (e *Engine) State(listingID string, user model.User) (model.LikeState, bool) {
	en, ok := e.entries[key{listingID, user.ID}]
	if !ok {
		return model.LikeState{ListingID: listingID}, false
	}
	return en.state, true
}

// Pending reports whether a toggle is outstanding for the pair.
func (e *Engine) Pending(listingID string, user model.User) bool {
	en, ok := e.entries[key{listingID, user.ID}]
	return ok && en.pending
}

// LastError returns the error of the most recent failed toggle for the pair.
func (e *Engine) LastError(listingID string, user model.User) error {
	if en, ok := e.entries[key{listingID, user.ID}]; ok {
		return en.lastErr
	}
	return nil
}

// Load fetches the like count and the user's liked flag. It returns true if
// a fetch was started; fresh, loading or mutating entries are left alone.
//
// A failed count degrades to 0 and a failed liked lookup to false.
func (e *Engine) Load(ctx context.Context, listingID string, user model.User) bool {
	en := e.entry(listingID, user)
	if en.loading || en.pending {
		return false
	}
	if !en.loaded.IsZero() && (e.staleAfter <= 0 || e.now().Sub(en.loaded) < e.staleAfter) {
		return false
	}

	en.loading = true
	gen := en.gen
	e.runner.Go(ctx, "load_like:"+listingID, func(ctx context.Context) func() {
		count, err := e.service.CountLikes(ctx, listingID)
		if err != nil {
			e.logger.Warn("like count failed", "listing", listingID, "error", err)
			count = 0
		}
		liked := false
		if user.Authenticated() {
			liked, err = e.service.HasLiked(ctx, listingID, user.ID)
			if err != nil {
				e.logger.Warn("liked lookup failed", "listing", listingID, "error", err)
				liked = false
			}
		}
		return func() {
			en.loading = false
			if en.gen != gen {
				// A toggle started meanwhile; its state wins and the next
				// Load refetches.
				metrics.LikeLoadsDiscarded.Inc()
				e.logger.Debug("discarding like load overlapped by toggle", "listing", listingID)
				return
			}
			en.state = model.LikeState{
				ListingID:          listingID,
				LikedByCurrentUser: liked,
				TotalCount:         max(0, count),
			}
			en.loaded = e.now()
			e.changed(en.state)
		}
	})
	return true
}

// Toggle flips the liked flag optimistically and issues the remote call.
//
// It returns an Unauthorized error for an anonymous user and
// ErrMutationPending while a toggle for the pair is outstanding; neither
// reaches the remote. Remote failures are reported through OnError and
// LastError, classified, with FailureMessage.
func (e *Engine) Toggle(ctx context.Context, listingID string, user model.User) error {
	if !user.Authenticated() {
		metrics.LikeToggles.WithLabelValues("unauthorized").Inc()
		return model.NewUnauthorizedError(OpToggleLike, "sign in to like items")
	}
	en := e.entry(listingID, user)
	if en.pending {
		metrics.LikeToggles.WithLabelValues("pending").Inc()
		return ErrMutationPending
	}

	prev := en.state
	next := prev.Toggled()
	en.state = next
	en.pending = true
	en.gen++
	en.lastErr = nil
	e.changed(next)

	op := remote.OpDeleteLike
	if next.LikedByCurrentUser {
		op = remote.OpCreateLike
	}
	e.logger.Debug("toggling like", "listing", listingID, "user", user.ID, "op", op)

	e.runner.Go(ctx, op+":"+listingID, func(ctx context.Context) func() {
		var err error
		if next.LikedByCurrentUser {
			err = e.service.CreateLike(ctx, listingID, user.ID)
		} else {
			err = e.service.DeleteLike(ctx, listingID, user.ID)
		}
		return func() {
			e.resolve(en, prev, err)
		}
	})
	return nil
}

func (e *Engine) resolve(en *entry, prev model.LikeState, err error) {
	defer func() { en.pending = false }()

	if err == nil {
		metrics.LikeToggles.WithLabelValues("confirmed").Inc()
		return
	}

	classified := model.Classify(OpToggleLike, err)
	en.lastErr = &model.Error{
		Code:    model.CodeOf(classified),
		Op:      OpToggleLike,
		Message: FailureMessage,
		Err:     classified,
	}

	if e.policy == PolicyRollback {
		en.state = prev
		metrics.LikeToggles.WithLabelValues("rolled_back").Inc()
		e.changed(en.state)
	} else {
		metrics.LikeToggles.WithLabelValues("kept").Inc()
	}
	e.logger.Warn("like toggle failed",
		"listing", en.state.ListingID,
		"policy", string(e.policy),
		"error", err)

	if e.onError != nil {
		e.onError(en.state.ListingID, en.lastErr)
	}
}

func (e *Engine) changed(s model.LikeState) {
	if e.onChange != nil {
		e.onChange(s)
	}
}
