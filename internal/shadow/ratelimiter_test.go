package shadow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowInbound_ZeroMeansUnlimited(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0)
	key := ShadowKey{ThingName: "thing-1"}

	for range 100 {
		assert.NoError(t, rl.AllowInbound(key))
	}
}

func TestRateLimiter_AllowInbound_PerThingThrottles(t *testing.T) {
	rl := NewRateLimiter(0, 0, 1)
	key := ShadowKey{ThingName: "thing-1"}

	// burst is perSec*burstMultiplier = 2
	assert.NoError(t, rl.AllowInbound(key))
	assert.NoError(t, rl.AllowInbound(key))
	assert.ErrorIs(t, rl.AllowInbound(key), ErrThrottled)
}

func TestRateLimiter_AllowInbound_PerThingIsolatesThings(t *testing.T) {
	rl := NewRateLimiter(0, 0, 1)

	a := ShadowKey{ThingName: "thing-a"}
	b := ShadowKey{ThingName: "thing-b"}

	assert.NoError(t, rl.AllowInbound(a))
	assert.NoError(t, rl.AllowInbound(a))
	assert.ErrorIs(t, rl.AllowInbound(a), ErrThrottled)

	// thing-b has its own bucket, unaffected by thing-a's exhaustion.
	assert.NoError(t, rl.AllowInbound(b))
}

func TestRateLimiter_AllowInbound_TotalBucketThrottlesAcrossThings(t *testing.T) {
	rl := NewRateLimiter(0, 1, 0)

	a := ShadowKey{ThingName: "thing-a"}
	b := ShadowKey{ThingName: "thing-b"}

	assert.NoError(t, rl.AllowInbound(a))
	assert.NoError(t, rl.AllowInbound(b))
	assert.ErrorIs(t, rl.AllowInbound(a), ErrThrottled)
}

func TestRateLimiter_WaitOutbound_ZeroMeansNoBlocking(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.WaitOutbound(ctx))
}

func TestRateLimiter_WaitOutbound_RespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.WaitOutbound(ctx)
	assert.Error(t, err)
}

func TestRateLimiter_EvictIdle_RemovesStalePerThingEntries(t *testing.T) {
	rl := NewRateLimiter(0, 0, 10)
	key := ShadowKey{ThingName: "thing-1"}

	require.NoError(t, rl.AllowInbound(key))

	count := 0
	rl.perThing.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)

	rl.EvictIdle(time.Now().Add(time.Hour))

	count = 0
	rl.perThing.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 0, count)
}
