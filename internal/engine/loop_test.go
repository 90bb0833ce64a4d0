package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settle(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Settle(ctx))
}

func TestLoopSettleAppliesPostedEventsInOrder(t *testing.T) {
	l := New()
	var order []string
	l.Post("a", func() { order = append(order, "a") })
	l.Post("b", func() { order = append(order, "b") })

	settle(t, l)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, int64(2), l.Clock().Current())
}

func TestLoopGoDeliversContinuationOnSettlingGoroutine(t *testing.T) {
	l := New()
	var applied []int

	for i := 0; i < 5; i++ {
		i := i
		l.Go(context.Background(), "work", func(ctx context.Context) func() {
			time.Sleep(time.Duration(5-i) * time.Millisecond)
			return func() { applied = append(applied, i) }
		})
	}

	settle(t, l)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, applied)
	assert.Equal(t, int64(0), l.Pending())
}

func TestLoopGoNilContinuation(t *testing.T) {
	l := New()
	l.Go(context.Background(), "noop", func(ctx context.Context) func() { return nil })
	settle(t, l)
	assert.Equal(t, int64(0), l.Pending())
}

func TestLoopSettleWaitsForHeldWork(t *testing.T) {
	l := New()
	release := make(chan struct{})
	done := false

	l.Go(context.Background(), "held", func(ctx context.Context) func() {
		<-release
		return func() { done = true }
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	settle(t, l)
	assert.True(t, done)
}

func TestLoopSettleHonorsContext(t *testing.T) {
	l := New()
	block := make(chan struct{})
	defer close(block)

	l.Go(context.Background(), "stuck", func(ctx context.Context) func() {
		<-block
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Settle(ctx), context.DeadlineExceeded)
}

func TestLoopAfterFuncFiresThroughQueue(t *testing.T) {
	l := New()
	fired := false
	l.AfterFunc(5*time.Millisecond, func() { fired = true })
	assert.Equal(t, int64(1), l.Pending())

	settle(t, l)
	assert.True(t, fired)
	assert.Equal(t, int64(0), l.Pending())
}

func TestLoopStoppedTimerReleasesSettle(t *testing.T) {
	l := New()
	fired := false
	timer := l.AfterFunc(time.Hour, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	settle(t, l)
	assert.False(t, fired)
}

func TestLoopRecoversFromPanickingHandler(t *testing.T) {
	l := New()
	ran := false
	l.Post("boom", func() { panic("boom") })
	l.Post("after", func() { ran = true })

	settle(t, l)
	assert.True(t, ran)
}

func TestLoopTracerSeesEveryEvent(t *testing.T) {
	var records []Record
	l := New(WithTracer(func(r Record) { records = append(records, r) }))

	l.Post("first", func() {})
	l.Go(context.Background(), "fetch", func(ctx context.Context) func() { return func() {} })
	settle(t, l)

	require.Len(t, records, 2)
	assert.Equal(t, Record{Seq: 1, Type: EventTypeCommand, Name: "first"}, records[0])
	assert.Equal(t, Record{Seq: 2, Type: EventTypeCompletion, Name: "fetch"}, records[1])
}

func TestLoopRunProcessesUntilStop(t *testing.T) {
	l := New()
	var mu sync.Mutex
	count := 0

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()

	for i := 0; i < 10; i++ {
		l.Post("inc", func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	l.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
	assert.False(t, l.Post("late", func() {}))
}

func TestLoopRunStopsOnContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestLoopStepAppliesOneEvent(t *testing.T) {
	l := New()
	release := make(chan struct{})
	heldDone, quickDone := false, false

	l.Go(context.Background(), "held", func(ctx context.Context) func() {
		<-release
		return func() { heldDone = true }
	})
	l.Go(context.Background(), "quick", func(ctx context.Context) func() {
		return func() { quickDone = true }
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Step(ctx))
	assert.True(t, quickDone)
	assert.False(t, heldDone)
	assert.Equal(t, int64(1), l.Pending())

	close(release)
	require.NoError(t, l.Step(ctx))
	assert.True(t, heldDone)
}

func TestLoopDrainDoesNotWait(t *testing.T) {
	l := New()
	l.Post("a", func() {})
	l.Post("b", func() {})
	assert.Equal(t, 2, l.Drain())
	assert.Equal(t, 0, l.Drain())
}
