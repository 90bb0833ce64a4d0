package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/feed"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
	"github.com/roach88/reelfeed/internal/store"
)

// backend is an open database behind the guarded collaborator.
type backend struct {
	store  *store.Store
	remote *remote.Guarded
}

// openBackend opens the configured database. The caller closes it.
func openBackend(opts *RootOptions) (*backend, error) {
	cfg := opts.Config
	slog.Debug("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path,
		store.WithCheckoutBaseURL(cfg.Checkout.BaseURL),
		store.WithLogger(slog.Default()))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return &backend{
		store:  st,
		remote: remote.NewGuarded(st, cfg.Guard(), slog.Default()),
	}, nil
}

func (b *backend) Close() {
	if err := b.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// session wires a feed session for user on a fresh loop.
func (b *backend) session(ctx context.Context, opts *RootOptions, user model.User) *feed.Session {
	loop := engine.New(
		engine.WithLogger(slog.Default()),
		engine.WithMaxSteps(engine.DefaultMaxSteps))
	sessOpts := opts.Config.SessionOptions()
	sessOpts.Logger = slog.Default()
	return feed.New(ctx, loop, b.remote, user, sessOpts)
}

// settle drives s until no remote work is outstanding.
func settle(ctx context.Context, s *feed.Session) error {
	if err := s.Loop().Settle(ctx); err != nil {
		return WrapExitError(ExitFailure, "event loop interrupted", err)
	}
	return nil
}
