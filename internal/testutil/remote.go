package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
)

// FakeEpoch is the creation time of the oldest seeded listing.
var FakeEpoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// FakeRemote is an in-memory remote.Collaborator for tests.
//
// Besides serving data it can:
//   - count calls per operation (Calls)
//   - fail the next call of an operation (FailNext)
//   - hold calls in flight until the test releases them (Hold, Release, ReleaseOne)
//
// Thread-safety: all methods are safe for concurrent use; remote calls run on
// worker goroutines started by the event loop.
type FakeRemote struct {
	mu           sync.Mutex
	listings     map[string]model.ListingDetail
	likes        map[string]map[string]bool
	sessions     map[string]model.CheckoutSession
	transactions []model.Transaction
	calls        map[string]int
	failures     map[string][]error
	holds        map[string]bool
	gates        map[string][]chan struct{}
	nextID       int

	// RedirectBase prefixes checkout redirect URLs. An empty base makes
	// InitiateCheckout return a session without a URL.
	RedirectBase string
}

var _ remote.Collaborator = (*FakeRemote)(nil)

// NewFakeRemote creates an empty fake.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		listings:     make(map[string]model.ListingDetail),
		likes:        make(map[string]map[string]bool),
		sessions:     make(map[string]model.CheckoutSession),
		calls:        make(map[string]int),
		failures:     make(map[string][]error),
		holds:        make(map[string]bool),
		gates:        make(map[string][]chan struct{}),
		RedirectBase: "https://checkout.test/session/",
	}
}

// AddListing stores a listing. Missing status defaults to active.
func (f *FakeRemote) AddListing(l model.ListingDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.Status == "" {
		l.Status = model.StatusActive
	}
	f.listings[l.ID] = l
}

// SeedListings adds n active listings named "listing-001".."listing-NNN".
// Higher numbers are newer, so the feed returns listing-NNN first.
// Categories cycle through model.ListingCategories and prices rise by €1.
func (f *FakeRemote) SeedListings(n int) {
	for i := 1; i <= n; i++ {
		f.AddListing(model.ListingDetail{
			Listing: model.Listing{
				ID:         fmt.Sprintf("listing-%03d", i),
				Title:      fmt.Sprintf("Item %d", i),
				PriceCents: int64(i) * 100,
				Category:   model.ListingCategories[(i-1)%len(model.ListingCategories)],
				Size:       "M",
				VideoURL:   fmt.Sprintf("https://cdn.test/%03d.webm", i),
				ThumbURL:   fmt.Sprintf("https://cdn.test/%03d.jpg", i),
				CreatedAt:  FakeEpoch.Add(time.Duration(i) * time.Minute),
				Status:     model.StatusActive,
			},
			SellerID:    "seller-1",
			SellerEmail: "seller@example.test",
		})
	}
}

// SetStatus changes a listing's status out of band.
func (f *FakeRemote) SetStatus(id string, status model.ListingStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[id]; ok {
		l.Status = status
		f.listings[id] = l
	}
}

// SetLike sets the like relation directly, without counting a call.
func (f *FakeRemote) SetLike(listingID, userID string, liked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLikeLocked(listingID, userID, liked)
}

// FailNext makes the next call of op return err.
func (f *FakeRemote) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Hold makes subsequent calls of op block until released.
func (f *FakeRemote) Hold(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[op] = true
}

// Release unblocks all held calls of op and stops holding new ones.
func (f *FakeRemote) Release(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[op] = false
	for _, g := range f.gates[op] {
		close(g)
	}
	f.gates[op] = nil
}

// ReleaseOne unblocks the oldest held call of op. New calls stay held.
// Returns false if no call is waiting.
func (f *FakeRemote) ReleaseOne(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.gates[op]) == 0 {
		return false
	}
	close(f.gates[op][0])
	f.gates[op] = f.gates[op][1:]
	return true
}

// Held returns the number of calls of op waiting for release.
func (f *FakeRemote) Held(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.gates[op])
}

// WaitHeld blocks until n calls of op are held or the timeout elapses.
func (f *FakeRemote) WaitHeld(op string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f.Held(op) >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return f.Held(op) >= n
}

// Calls returns how many times op was invoked.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Transactions returns the recorded transactions.
func (f *FakeRemote) Transactions() []model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.transactions)
}

// enter records a call, blocks while the op is held and returns any
// injected failure.
func (f *FakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	var gate chan struct{}
	if f.holds[op] {
		gate = make(chan struct{})
		f.gates[op] = append(f.gates[op], gate)
	}
	var injected error
	if q := f.failures[op]; len(q) > 0 {
		injected = q[0]
		f.failures[op] = q[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return injected
}

func (f *FakeRemote) FetchListings(ctx context.Context, filter model.Filter, pageIndex, pageSize int) (model.Page, error) {
	if err := f.enter(ctx, remote.OpFetchListings); err != nil {
		return model.Page{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []model.Listing
	for _, l := range f.listings {
		if Matches(filter, l.Listing) {
			matched = append(matched, l.Listing)
		}
	}
	slices.SortFunc(matched, NewestFirst)

	start := pageIndex * pageSize
	end := min(start+pageSize, len(matched))
	page := model.Page{Index: pageIndex, Items: []model.Listing{}}
	if start < len(matched) {
		page.Items = slices.Clone(matched[start:end])
	}
	page.IsLastPage = len(page.Items) < pageSize
	return page, nil
}

func (f *FakeRemote) FetchListingByID(ctx context.Context, id string) (model.ListingDetail, error) {
	if err := f.enter(ctx, remote.OpFetchListing); err != nil {
		return model.ListingDetail{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return model.ListingDetail{}, model.NewNotFoundError(remote.OpFetchListing, "listing not found")
	}
	return l, nil
}

func (f *FakeRemote) CreateLike(ctx context.Context, listingID, userID string) error {
	if err := f.enter(ctx, remote.OpCreateLike); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLikeLocked(listingID, userID, true)
	return nil
}

func (f *FakeRemote) DeleteLike(ctx context.Context, listingID, userID string) error {
	if err := f.enter(ctx, remote.OpDeleteLike); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLikeLocked(listingID, userID, false)
	return nil
}

func (f *FakeRemote) setLikeLocked(listingID, userID string, liked bool) {
	users := f.likes[listingID]
	if users == nil {
		users = make(map[string]bool)
		f.likes[listingID] = users
	}
	if liked {
		users[userID] = true
	} else {
		delete(users, userID)
	}
}

func (f *FakeRemote) CountLikes(ctx context.Context, listingID string) (int64, error) {
	if err := f.enter(ctx, remote.OpCountLikes); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.likes[listingID])), nil
}

func (f *FakeRemote) HasLiked(ctx context.Context, listingID, userID string) (bool, error) {
	if err := f.enter(ctx, remote.OpHasLiked); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[listingID][userID], nil
}

func (f *FakeRemote) InitiateCheckout(ctx context.Context, req remote.CheckoutRequest) (model.CheckoutSession, error) {
	if err := f.enter(ctx, remote.OpInitiateCheckout); err != nil {
		return model.CheckoutSession{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	s := model.CheckoutSession{
		ID:          fmt.Sprintf("cs_test_%04d", f.nextID),
		ListingID:   req.ListingID,
		BuyerID:     req.BuyerID,
		AmountCents: req.AmountCents,
		Title:       req.Title,
	}
	if f.RedirectBase != "" {
		s.RedirectURL = f.RedirectBase + s.ID
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *FakeRemote) CompleteCheckout(ctx context.Context, sessionID, paymentIntent string) (model.Transaction, error) {
	if err := f.enter(ctx, remote.OpCompleteCheckout); err != nil {
		return model.Transaction{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return model.Transaction{}, model.NewNotFoundError(remote.OpCompleteCheckout, "checkout session not found")
	}
	l, ok := f.listings[s.ListingID]
	if !ok {
		return model.Transaction{}, model.NewNotFoundError(remote.OpCompleteCheckout, "listing not found")
	}
	if l.Status == model.StatusSold {
		return model.Transaction{}, model.NewConflictError(remote.OpCompleteCheckout, "listing is no longer available")
	}
	l.Status = model.StatusSold
	f.listings[l.ID] = l

	tx := model.Transaction{
		ID:            fmt.Sprintf("tx-%04d", len(f.transactions)+1),
		ListingID:     l.ID,
		BuyerID:       s.BuyerID,
		SellerID:      l.SellerID,
		AmountCents:   s.AmountCents,
		Status:        model.TransactionCompleted,
		PaymentIntent: paymentIntent,
		SessionID:     s.ID,
	}
	f.transactions = append(f.transactions, tx)
	return tx, nil
}

func (f *FakeRemote) CreateListing(ctx context.Context, draft model.ListingDraft) (model.Listing, error) {
	if err := f.enter(ctx, remote.OpCreateListing); err != nil {
		return model.Listing{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	l := model.Listing{
		ID:         fmt.Sprintf("created-%04d", f.nextID),
		Title:      draft.Title,
		PriceCents: draft.PriceCents,
		Category:   draft.Category,
		Size:       draft.Size,
		VideoURL:   draft.VideoURL,
		ThumbURL:   draft.ThumbURL,
		CreatedAt:  draft.CreatedAt,
		Status:     model.StatusActive,
	}
	f.listings[l.ID] = model.ListingDetail{Listing: l, SellerID: draft.SellerID}
	return l, nil
}

// Matches reports whether l satisfies filter under the remote contract.
func Matches(filter model.Filter, l model.Listing) bool {
	if l.Status != model.StatusActive {
		return false
	}
	if filter.Search != "" && !strings.Contains(model.NormalizeSearch(l.Title), filter.Search) {
		return false
	}
	if filter.Category != model.CategoryAll && l.Category != filter.Category {
		return false
	}
	if filter.MinPrice != nil && l.PriceCents < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && l.PriceCents > *filter.MaxPrice {
		return false
	}
	return true
}

// NewestFirst orders listings by created_at DESC, id DESC.
func NewestFirst(a, b model.Listing) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// ErrRemoteDown is a convenient injected transport failure.
var ErrRemoteDown = errors.New("remote unavailable")
