package shadow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTicker is a test Ticker driven entirely by explicit Fire calls,
// standing in for rc.Clock.NewTicker so PeriodicSyncStrategy tests don't
// depend on wall-clock timing.
type manualTicker struct {
	ch      chan time.Time
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped = true }
func (m *manualTicker) Fire()               { m.ch <- time.Now() }

// manualClock hands out a single pre-built manualTicker so the test can
// drive it directly.
type manualClock struct {
	ticker *manualTicker
}

func (c *manualClock) Now() time.Time { return time.Now() }
func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	return RealClock().Sleep(ctx, d)
}
func (c *manualClock) NewTicker(time.Duration) Ticker { return c.ticker }

func newPeriodicTestRC(ticker *manualTicker) *RequestContext {
	return &RequestContext{
		Clock:  &manualClock{ticker: ticker},
		Logger: discardLogger(),
		Locks:  NewLockTable(),
	}
}

func TestPeriodicSyncStrategy_FiresAndDrainsQueueOnTick(t *testing.T) {
	q := NewQueue(8)
	ticker := newManualTicker()
	rc := newPeriodicTestRC(ticker)

	strategy := NewPeriodicSyncStrategy(rc, q, time.Hour)
	require.NoError(t, strategy.Start(context.Background()))
	defer strategy.Stop()

	executed := make(chan struct{}, 1)
	req := &scriptedRequest{key: ShadowKey{ThingName: "thing-1"}, necessary: true, execute: func(int) error {
		executed <- struct{}{}
		return nil
	}}
	require.NoError(t, strategy.PutSyncRequest(req))

	ticker.Fire()

	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("periodic strategy did not drain the queue on tick")
	}
}

func TestPeriodicSyncStrategy_SkipsOverlappingFiring(t *testing.T) {
	q := NewQueue(8)
	ticker := newManualTicker()
	rc := newPeriodicTestRC(ticker)

	strategy := NewPeriodicSyncStrategy(rc, q, time.Hour)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	req := &scriptedRequest{key: ShadowKey{ThingName: "thing-1"}, necessary: true, execute: func(attempt int) error {
		entered <- struct{}{}
		<-release
		return nil
	}}
	require.NoError(t, q.Put(req))

	require.NoError(t, strategy.Start(context.Background()))
	defer func() {
		close(release)
		strategy.Stop()
	}()

	ticker.Fire()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first firing never started executing")
	}

	// A second tick while the first firing is still blocked on release
	// must be dropped, not queued, per fire()'s isRunning CAS guard.
	ticker.Fire()
	assert.True(t, strategy.isRunning.Load())
}

func TestPeriodicSyncStrategy_StopPreservesQueuedItems(t *testing.T) {
	q := NewQueue(8)
	ticker := newManualTicker()
	rc := newPeriodicTestRC(ticker)

	strategy := NewPeriodicSyncStrategy(rc, q, time.Hour)
	require.NoError(t, strategy.Start(context.Background()))

	req := &scriptedRequest{key: ShadowKey{ThingName: "thing-1"}, necessary: true, execute: func(int) error {
		return nil
	}}
	require.NoError(t, strategy.PutSyncRequest(req))

	strategy.Stop()

	assert.Equal(t, 1, q.Size())
}

func TestPeriodicSyncStrategy_ClearSyncQueueEmptiesWithoutStopping(t *testing.T) {
	q := NewQueue(8)
	ticker := newManualTicker()
	rc := newPeriodicTestRC(ticker)

	strategy := NewPeriodicSyncStrategy(rc, q, time.Hour)
	require.NoError(t, strategy.PutSyncRequest(&scriptedRequest{key: ShadowKey{ThingName: "thing-1"}, necessary: true, execute: func(int) error { return nil }}))

	strategy.ClearSyncQueue()

	assert.Equal(t, 0, q.Size())
}
