// Package pagination holds the page cache and the controller that fills it.
//
// INVARIANTS:
//   - An entry's pages have indices 0..N-1, contiguous, append-only.
//   - Once exhausted, an entry never fetches again.
//   - Only the active signature's entry is kept; activating a different
//     signature discards the previous entry, it is never merged.
//   - Staleness is checked only when a deactivated entry is re-activated,
//     never while its signature stays active.
//
// Not safe for concurrent use; all calls happen on the loop goroutine.
package pagination

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/reelfeed/internal/model"
)

// Entry is the cached result set for one filter signature.
type Entry struct {
	filter    model.Filter
	signature string
	pages     []model.Page
	fetching  bool
	exhausted bool
	lastErr   error
	touchedAt time.Time
}

func newEntry(filter model.Filter, now time.Time) *Entry {
	return &Entry{
		filter:    filter,
		signature: filter.Signature(),
		touchedAt: now,
	}
}

// Filter returns the normalized filter the entry was created for.
func (e *Entry) Filter() model.Filter { return e.filter }

// Signature returns the cache key.
func (e *Entry) Signature() string { return e.signature }

// Fetching reports whether a page request is outstanding.
func (e *Entry) Fetching() bool { return e.fetching }

// Exhausted reports whether the remote confirmed there are no more pages.
func (e *Entry) Exhausted() bool { return e.exhausted }

// HasNextPage is the negation of Exhausted.
func (e *Entry) HasNextPage() bool { return !e.exhausted }

// LastError returns the error of the most recent failed fetch, cleared by
// the next successful one.
func (e *Entry) LastError() error { return e.lastErr }

// NextIndex is the index of the page the next fetch will request.
func (e *Entry) NextIndex() int { return len(e.pages) }

// Pages returns a copy of the fetched pages.
func (e *Entry) Pages() []model.Page {
	return slices.Clone(e.pages)
}

// Items flattens pages in order. A listing id that reappears in a later page
// (the remote gained rows between fetches) keeps its first position.
func (e *Entry) Items() []model.Listing {
	n := 0
	for _, p := range e.pages {
		n += len(p.Items)
	}
	items := make([]model.Listing, 0, n)
	seen := make(map[string]struct{}, n)
	for _, p := range e.pages {
		for _, l := range p.Items {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			items = append(items, l)
		}
	}
	return items
}

// Cache is the page cache store, keyed by filter signature.
type Cache struct {
	entries    map[string]*Entry
	active     string
	now        func() time.Time
	staleAfter time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStaleAfter resets a deactivated entry on re-activation once it has
// been idle for d. Zero disables staleness.
func WithStaleAfter(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.staleAfter = d
	}
}

// WithNow sets the time source used for staleness.
func WithNow(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the entry for filter, creating an empty one if the
// signature is new.
func (c *Cache) GetOrCreate(filter model.Filter) *Entry {
	sig := filter.Signature()
	if e, ok := c.entries[sig]; ok {
		return e
	}
	e := newEntry(filter, c.now())
	c.entries[sig] = e
	return e
}

// Get returns the entry for a signature.
func (c *Cache) Get(signature string) (*Entry, bool) {
	e, ok := c.entries[signature]
	return e, ok
}

// Activate makes filter's signature the active one and returns its entry.
//
// Activating the signature that is already active returns its entry as is.
// Switching to a different signature discards the previous entry. After
// Deactivate, the kept entry is reused unless it has been idle for
// StaleAfter, in which case it is replaced by an empty one.
func (c *Cache) Activate(filter model.Filter) (entry *Entry, changed bool) {
	sig := filter.Signature()
	if c.active == sig {
		e := c.GetOrCreate(filter)
		c.touch(e)
		return e, false
	}

	maps.DeleteFunc(c.entries, func(k string, _ *Entry) bool { return k != sig })
	c.active = sig

	if e, ok := c.entries[sig]; ok && c.stale(e) {
		delete(c.entries, sig)
	}
	e := c.GetOrCreate(filter)
	c.touch(e)
	return e, true
}

// Deactivate clears the active signature but keeps its entry, as when the
// list is unmounted. The next Activate of the same signature reuses the
// entry if it is still fresh.
func (c *Cache) Deactivate() {
	c.active = ""
}

func (c *Cache) touch(e *Entry) {
	e.touchedAt = c.now()
}

func (c *Cache) stale(e *Entry) bool {
	return c.staleAfter > 0 && !e.fetching && c.now().Sub(e.touchedAt) >= c.staleAfter
}

// ActiveSignature returns the active signature, or "" before any activation.
func (c *Cache) ActiveSignature() string {
	return c.active
}

// Active returns the active entry.
func (c *Cache) Active() (*Entry, bool) {
	if c.active == "" {
		return nil, false
	}
	return c.Get(c.active)
}

// Invalidate discards the entry for a signature. The signature stays
// active if it was; the next fetch starts again from page 0.
func (c *Cache) Invalidate(signature string) {
	delete(c.entries, signature)
}

// current reports whether e is still the live entry for its signature and
// that signature is active. Completions for anything else are stale.
func (c *Cache) current(e *Entry) bool {
	live, ok := c.entries[e.signature]
	return ok && live == e && c.active == e.signature
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
