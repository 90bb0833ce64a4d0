package remote_test

import (
	"context"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reelfeed/internal/metrics"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
	"github.com/roach88/reelfeed/internal/testutil"
)

func newGuarded(t *testing.T, mutate func(*remote.GuardConfig)) (*remote.Guarded, *testutil.FakeRemote) {
	t.Helper()
	fake := testutil.NewFakeRemote()
	fake.SeedListings(5)
	cfg := remote.DefaultGuardConfig()
	cfg.Name = t.Name()
	cfg.RatePerSecond = 0
	if mutate != nil {
		mutate(&cfg)
	}
	return remote.NewGuarded(fake, cfg, nil), fake
}

func TestGuardedPassesThrough(t *testing.T) {
	g, _ := newGuarded(t, nil)
	ok := metrics.RemoteRequests.WithLabelValues(remote.OpFetchListings, "ok")
	before := promtest.ToFloat64(ok)

	page, err := g.FetchListings(context.Background(), model.Normalize(model.FilterState{}), 0, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "listing-005", page.Items[0].ID)
	assert.Equal(t, before+1, promtest.ToFloat64(ok))
}

func TestGuardedNotFoundDoesNotTrip(t *testing.T) {
	g, _ := newGuarded(t, func(c *remote.GuardConfig) { c.MaxFailures = 2 })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.FetchListingByID(ctx, "missing")
		assert.True(t, model.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuardedBreakerOpensOnNetworkFailures(t *testing.T) {
	g, fake := newGuarded(t, func(c *remote.GuardConfig) {
		c.MaxFailures = 2
		c.BreakerTimeout = time.Hour
	})
	ctx := context.Background()
	fake.FailNext(remote.OpCountLikes, testutil.ErrRemoteDown)
	fake.FailNext(remote.OpCountLikes, testutil.ErrRemoteDown)

	for i := 0; i < 2; i++ {
		_, err := g.CountLikes(ctx, "listing-001")
		assert.True(t, model.IsNetworkFailure(err))
		assert.ErrorIs(t, err, testutil.ErrRemoteDown)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.HasLiked(ctx, "listing-001", "alice")
	assert.True(t, model.IsNetworkFailure(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 0, fake.Calls(remote.OpHasLiked), "rejected before reaching the remote")
}

func TestGuardedTimeout(t *testing.T) {
	g, fake := newGuarded(t, func(c *remote.GuardConfig) { c.Timeout = 20 * time.Millisecond })
	fake.Hold(remote.OpCreateLike)
	defer fake.Release(remote.OpCreateLike)

	err := g.CreateLike(context.Background(), "listing-001", "alice")
	assert.True(t, model.IsNetworkFailure(err))
	assert.Contains(t, err.Error(), "request timed out")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardedCheckout(t *testing.T) {
	g, fake := newGuarded(t, nil)
	ctx := context.Background()
	req := remote.CheckoutRequest{ListingID: "listing-001", BuyerID: "alice", AmountCents: 100, Title: "Item 1"}

	s, err := g.InitiateCheckout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/session/"+s.ID, s.RedirectURL)

	fake.RedirectBase = ""
	_, err = g.InitiateCheckout(ctx, req)
	assert.True(t, model.IsNetworkFailure(err))
	assert.Contains(t, err.Error(), "no checkout URL received")

	calls := fake.Calls(remote.OpInitiateCheckout)
	req.AmountCents = 0
	_, err = g.InitiateCheckout(ctx, req)
	assert.True(t, model.IsValidationRejected(err))
	assert.Equal(t, calls, fake.Calls(remote.OpInitiateCheckout))
}

func TestGuardedCompleteCheckoutConflict(t *testing.T) {
	g, _ := newGuarded(t, nil)
	ctx := context.Background()
	s, err := g.InitiateCheckout(ctx, remote.CheckoutRequest{ListingID: "listing-002", BuyerID: "alice", AmountCents: 200, Title: "Item 2"})
	require.NoError(t, err)

	tx, err := g.CompleteCheckout(ctx, s.ID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionCompleted, tx.Status)

	_, err = g.CompleteCheckout(ctx, s.ID, "pi_2")
	assert.True(t, model.IsConflict(err))
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestGuardedCreateListingValidates(t *testing.T) {
	g, fake := newGuarded(t, nil)
	_, err := g.CreateListing(context.Background(), model.ListingDraft{Title: "no"})
	assert.True(t, model.IsValidationRejected(err))
	assert.Equal(t, 0, fake.Calls(remote.OpCreateListing))

	l, err := g.CreateListing(context.Background(), model.ListingDraft{
		Title: "Denim jacket", PriceCents: 2500, Category: "Outerwear", Size: "M", SellerID: "seller-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, l.Status)
}

func TestGuardedRateLimitHonoursContext(t *testing.T) {
	g, _ := newGuarded(t, func(c *remote.GuardConfig) {
		c.RatePerSecond = 0.001
		c.Burst = 1
	})
	ctx := context.Background()
	_, err := g.CountLikes(ctx, "listing-001")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = g.CountLikes(short, "listing-001")
	assert.True(t, model.IsNetworkFailure(err))
}
