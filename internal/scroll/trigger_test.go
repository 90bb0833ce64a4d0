package scroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reelfeed/internal/engine"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/pagination"
	"github.com/roach88/reelfeed/internal/remote"
	"github.com/roach88/reelfeed/internal/testutil"
)

type fixture struct {
	loop    *engine.Loop
	remote  *testutil.FakeRemote
	ctrl    *pagination.Controller
	trigger *Trigger
}

func newFixture(t *testing.T, listings int) *fixture {
	t.Helper()
	f := &fixture{loop: engine.New(), remote: testutil.NewFakeRemote()}
	f.remote.SeedListings(listings)
	f.ctrl = pagination.NewController(f.loop, pagination.NewCache(), f.remote)
	f.trigger = New(f.ctrl)
	return f
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.loop.Settle(ctx))
}

func (f *fixture) items() int {
	entry, ok := f.ctrl.Cache().Active()
	if !ok {
		return 0
	}
	return len(entry.Items())
}

func TestSentinelDrivesPaginationToEnd(t *testing.T) {
	f := newFixture(t, 45)
	ctx := context.Background()

	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{}))
	f.settle(t)
	assert.Equal(t, 20, f.items())
	assert.Equal(t, IndicatorIdle, f.trigger.Indicator())

	assert.True(t, f.trigger.Observe(ctx, true))
	assert.Equal(t, IndicatorLoading, f.trigger.Indicator())
	f.settle(t)
	assert.Equal(t, 40, f.items())

	f.trigger.Observe(ctx, false)
	assert.True(t, f.trigger.Observe(ctx, true))
	f.settle(t)
	assert.Equal(t, 45, f.items())

	assert.True(t, f.trigger.Inert())
	assert.Equal(t, IndicatorEnd, f.trigger.Indicator())
	assert.Equal(t, "You've reached the end!", f.trigger.Indicator().Text())

	f.trigger.Observe(ctx, false)
	assert.False(t, f.trigger.Observe(ctx, true), "inert once exhausted")
	f.settle(t)
	assert.Equal(t, 3, f.remote.Calls(remote.OpFetchListings))
	assert.Equal(t, 2, f.trigger.Requests())
}

func TestContinuousVisibilityFiresOnce(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{}))
	f.settle(t)

	f.remote.Hold(remote.OpFetchListings)
	assert.True(t, f.trigger.Observe(ctx, true))
	for i := 0; i < 5; i++ {
		assert.False(t, f.trigger.Observe(ctx, true))
	}
	f.remote.Release(remote.OpFetchListings)
	f.settle(t)

	assert.False(t, f.trigger.Observe(ctx, true), "still visible after completion: no new transition")
	assert.Equal(t, 2, f.remote.Calls(remote.OpFetchListings))
}

func TestTransitionWhileFetchingDoesNotDuplicate(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{}))
	f.settle(t)

	f.remote.Hold(remote.OpFetchListings)
	assert.True(t, f.trigger.Observe(ctx, true))
	f.trigger.Observe(ctx, false)
	assert.False(t, f.trigger.Observe(ctx, true), "controller guard rejects overlapping fetch")
	f.remote.Release(remote.OpFetchListings)
	f.settle(t)

	assert.Equal(t, 2, f.remote.Calls(remote.OpFetchListings))
}

func TestReportUsesThreshold(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{}))
	f.settle(t)

	assert.False(t, f.trigger.Report(ctx, 0.05))
	assert.True(t, f.trigger.Report(ctx, 0.1))
	f.settle(t)
}

func TestFilterChangeRearmsTrigger(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{}))
	f.settle(t)
	f.trigger.Observe(ctx, true)
	f.settle(t)

	f.ctrl.FetchNext(ctx, model.Normalize(model.FilterState{Category: "Tops"}))
	f.settle(t)

	// Tops has 15 of 100 listings: the first page already exhausts it.
	assert.True(t, f.trigger.Inert())
	assert.False(t, f.trigger.Observe(ctx, true))
}

func TestNoActiveEntry(t *testing.T) {
	f := newFixture(t, 10)
	assert.False(t, f.trigger.Observe(context.Background(), true))
	assert.Equal(t, IndicatorIdle, f.trigger.Indicator())
	assert.False(t, f.trigger.Inert())
	assert.Equal(t, "", IndicatorIdle.Text())
	assert.Equal(t, "Loading more items...", IndicatorLoading.Text())
}
