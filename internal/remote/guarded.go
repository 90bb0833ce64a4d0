package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
)

// GuardConfig configures a Guarded collaborator.
type GuardConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string

	// Timeout bounds every call. Zero disables the timeout.
	Timeout time.Duration

	// RatePerSecond and Burst shape outgoing calls. Zero rate is unlimited.
	RatePerSecond float64
	Burst         int

	// MaxFailures consecutive network failures open the breaker.
	MaxFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// DefaultGuardConfig returns the production defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Name:           "remote",
		Timeout:        10 * time.Second,
		RatePerSecond:  20,
		Burst:          10,
		MaxFailures:    5,
		BreakerTimeout: 30 * time.Second,
	}
}

// Guarded wraps a Collaborator with a per-call timeout, a token bucket, a
// circuit breaker, error classification and metrics.
//
// Every error it returns is a *model.Error. Only network failures count
// against the breaker; NotFound, Conflict and the like are answers, not
// outages.
type Guarded struct {
	inner   Collaborator
	cfg     GuardConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

var _ Collaborator = (*Guarded)(nil)

// NewGuarded wraps inner.
func NewGuarded(inner Collaborator, cfg GuardConfig, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "remote"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultGuardConfig().MaxFailures
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := max(cfg.Burst, 1)

	g := &Guarded{
		inner:   inner,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)
	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !model.Retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return g
}

// State returns the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// guard runs fn through the limiter, the breaker and the timeout.
func guard[T any](g *Guarded, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if err := g.limiter.Wait(ctx); err != nil {
		metrics.RemoteRejected.WithLabelValues(op, "rate_limited").Inc()
		return zero, model.Classify(op, fmt.Errorf("rate limit: %w", err))
	}

	result, err := g.breaker.Execute(func() (any, error) {
		callCtx := ctx
		if g.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
			defer cancel()
		}
		v, err := fn(callCtx)
		return v, model.Classify(op, err)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		metrics.RemoteRejected.WithLabelValues(op, "breaker_open").Inc()
		return zero, model.NewNetworkError(op, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RemoteRejected.WithLabelValues(op, "too_many_requests").Inc()
		return zero, model.NewNetworkError(op, err)
	}

	metrics.RecordRemoteCall(op, string(model.CodeOf(err)), time.Since(start))
	if err != nil {
		g.logger.Debug("remote call failed", "op", op, "error", err)
		return zero, err
	}
	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, model.NewNetworkError(op, fmt.Errorf("unexpected result type %T", result))
	}
	return typed, nil
}

func (g *Guarded) FetchListings(ctx context.Context, filter model.Filter, pageIndex, pageSize int) (model.Page, error) {
	return guard(g, ctx, OpFetchListings, func(ctx context.Context) (model.Page, error) {
		return g.inner.FetchListings(ctx, filter, pageIndex, pageSize)
	})
}

func (g *Guarded) FetchListingByID(ctx context.Context, id string) (model.ListingDetail, error) {
	return guard(g, ctx, OpFetchListing, func(ctx context.Context) (model.ListingDetail, error) {
		return g.inner.FetchListingByID(ctx, id)
	})
}

func (g *Guarded) CreateLike(ctx context.Context, listingID, userID string) error {
	_, err := guard(g, ctx, OpCreateLike, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.CreateLike(ctx, listingID, userID)
	})
	return err
}

func (g *Guarded) DeleteLike(ctx context.Context, listingID, userID string) error {
	_, err := guard(g, ctx, OpDeleteLike, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.DeleteLike(ctx, listingID, userID)
	})
	return err
}

func (g *Guarded) CountLikes(ctx context.Context, listingID string) (int64, error) {
	return guard(g, ctx, OpCountLikes, func(ctx context.Context) (int64, error) {
		return g.inner.CountLikes(ctx, listingID)
	})
}

func (g *Guarded) HasLiked(ctx context.Context, listingID, userID string) (bool, error) {
	return guard(g, ctx, OpHasLiked, func(ctx context.Context) (bool, error) {
		return g.inner.HasLiked(ctx, listingID, userID)
	})
}

// InitiateCheckout validates the request locally, then starts the session.
// A session without a redirect URL is a network failure.
func (g *Guarded) InitiateCheckout(ctx context.Context, req CheckoutRequest) (model.CheckoutSession, error) {
	if err := model.Validator().Struct(req); err != nil {
		return model.CheckoutSession{}, model.NewValidationError(OpInitiateCheckout, "invalid checkout request", err)
	}
	return guard(g, ctx, OpInitiateCheckout, func(ctx context.Context) (model.CheckoutSession, error) {
		s, err := g.inner.InitiateCheckout(ctx, req)
		if err != nil {
			return s, err
		}
		if s.RedirectURL == "" {
			return s, &model.Error{Code: model.ErrCodeNetworkFailure, Op: OpInitiateCheckout, Message: "no checkout URL received"}
		}
		return s, nil
	})
}

func (g *Guarded) CompleteCheckout(ctx context.Context, sessionID, paymentIntent string) (model.Transaction, error) {
	return guard(g, ctx, OpCompleteCheckout, func(ctx context.Context) (model.Transaction, error) {
		return g.inner.CompleteCheckout(ctx, sessionID, paymentIntent)
	})
}

// CreateListing rejects invalid drafts before they reach the remote.
func (g *Guarded) CreateListing(ctx context.Context, draft model.ListingDraft) (model.Listing, error) {
	if err := model.ValidateDraft(draft); err != nil {
		return model.Listing{}, err
	}
	return guard(g, ctx, OpCreateListing, func(ctx context.Context) (model.Listing, error) {
		return g.inner.CreateListing(ctx, draft)
	})
}
