package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
)

// PageFetcher is the part of the remote contract the controller needs.
type PageFetcher interface {
	FetchListings(ctx context.Context, filter model.Filter, pageIndex, pageSize int) (model.Page, error)
}

// Controller fetches pages in order into the Cache.
//
// CRITICAL: FetchNext is a no-op while a fetch is outstanding or once the
// entry is exhausted. This is what keeps overlapping scroll and visibility
// events from issuing duplicate requests.
type Controller struct {
	runner   engine.Runner
	cache    *Cache
	source   PageFetcher
	pageSize int
	logger   *slog.Logger

	onPage  func(*Entry, model.Page)
	onError func(*Entry, error)
	onStale func(signature string, index int)
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize sets the page size. Defaults to model.DefaultPageSize.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// OnPage registers a callback for every appended page.
func OnPage(fn func(*Entry, model.Page)) Option {
	return func(c *Controller) {
		c.onPage = fn
	}
}

// OnError registers a callback for failed fetches. The error is always
// classified (see model.Classify).
func OnError(fn func(*Entry, error)) Option {
	return func(c *Controller) {
		c.onError = fn
	}
}

// OnStale registers a callback for results discarded as stale.
func OnStale(fn func(signature string, index int)) Option {
	return func(c *Controller) {
		c.onStale = fn
	}
}

// NewController creates a controller filling cache from source.
// Remote work runs through runner; completions are applied on the loop.
func NewController(runner engine.Runner, cache *Cache, source PageFetcher, opts ...Option) *Controller {
	c := &Controller{
		runner:   runner,
		cache:    cache,
		source:   source,
		pageSize: model.DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the configured page size.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// Cache returns the underlying cache.
func (c *Controller) Cache() *Cache {
	return c.cache
}

// FetchNext requests the next page for filter, activating its signature.
// It returns true if a request was started.
func (c *Controller) FetchNext(ctx context.Context, filter model.Filter) bool {
	entry, _ := c.cache.Activate(filter)

	if entry.fetching {
		metrics.FetchSkipped.WithLabelValues("fetching").Inc()
		return false
	}
	if entry.exhausted {
		metrics.FetchSkipped.WithLabelValues("exhausted").Inc()
		return false
	}

	entry.fetching = true
	index := entry.NextIndex()
	sig := entry.signature
	pageSize := c.pageSize

	c.logger.Debug("fetching page", "signature", sig[:12], "index", index)

	c.runner.Go(ctx, fmt.Sprintf("fetch_page:%d", index), func(ctx context.Context) func() {
		page, err := c.source.FetchListings(ctx, filter, index, pageSize)
		return func() {
			c.resolve(entry, index, page, err)
		}
	})
	return true
}

// Retry re-issues the failed fetch for the active entry, if any.
// It is FetchNext on the active filter; the same index is requested again
// because failed fetches append nothing.
func (c *Controller) Retry(ctx context.Context) bool {
	entry, ok := c.cache.Active()
	if !ok || entry.lastErr == nil {
		return false
	}
	return c.FetchNext(ctx, entry.filter)
}

// resolve applies a fetch result on the loop goroutine.
func (c *Controller) resolve(entry *Entry, index int, page model.Page, err error) {
	// Cleared on every path, or the signature could never paginate again.
	defer func() { entry.fetching = false }()

	if !c.cache.current(entry) {
		metrics.StaleResults.Inc()
		c.logger.Debug("discarding stale page", "signature", entry.signature[:12], "index", index)
		if c.onStale != nil {
			c.onStale(entry.signature, index)
		}
		return
	}

	if err != nil {
		err = model.Classify(remote.OpFetchListings, err)
		entry.lastErr = err
		metrics.FetchErrors.WithLabelValues(string(model.CodeOf(err))).Inc()
		c.logger.Warn("page fetch failed", "signature", entry.signature[:12], "index", index, "error", err)
		if c.onError != nil {
			c.onError(entry, err)
		}
		return
	}

	appended := model.Page{
		Index:      index,
		Items:      uniqueByID(page.Items),
		IsLastPage: len(page.Items) < c.pageSize,
	}
	entry.pages = append(entry.pages, appended)
	entry.exhausted = appended.IsLastPage
	entry.lastErr = nil
	c.cache.touch(entry)
	metrics.PagesAppended.Inc()

	c.logger.Debug("page appended",
		"signature", entry.signature[:12],
		"index", index,
		"items", len(appended.Items),
		"exhausted", entry.exhausted)

	if c.onPage != nil {
		c.onPage(entry, appended)
	}
}

// uniqueByID drops repeated ids within one page, keeping the first.
func uniqueByID(items []model.Listing) []model.Listing {
	out := slices.Clone(items)
	seen := make(map[string]struct{}, len(out))
	return slices.DeleteFunc(out, func(l model.Listing) bool {
		if _, dup := seen[l.ID]; dup {
			return true
		}
		seen[l.ID] = struct{}{}
		return false
	})
}
