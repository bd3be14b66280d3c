package shadow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// burstMultiplier controls each token bucket's burst size relative to its
// per-second rate, allowing a short quiet period to be spent on the next
// burst of requests without raising sustained throughput.
const burstMultiplier = 2

// RateLimiter enforces spec.md §4.7's three independent buckets: outbound
// sync updates to the cloud, total inbound local requests, and inbound
// local requests per individual thing. Modeled on the teacher's
// BandwidthLimiter, generalized from byte-rate token buckets to
// request-rate token buckets and from one shared limiter to three.
type RateLimiter struct {
	outbound      *rate.Limiter
	inboundTotal  *rate.Limiter
	perThing      sync.Map // ShadowKey.ThingName -> *perThingLimiter
	perThingLimit rate.Limit
	perThingBurst int
	idleEvictAfter time.Duration
}

type perThingLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
	mu       sync.Mutex
}

// NewRateLimiter builds a RateLimiter from the config rates in requests per
// second. A rate of 0 is treated as unlimited for that bucket.
func NewRateLimiter(outboundPerSec, inboundTotalPerSec, inboundPerThingPerSec int) *RateLimiter {
	return &RateLimiter{
		outbound:       newLimiter(outboundPerSec),
		inboundTotal:   newLimiter(inboundTotalPerSec),
		perThingLimit:  rateLimit(inboundPerThingPerSec),
		perThingBurst:  burst(inboundPerThingPerSec),
		idleEvictAfter: 10 * time.Minute,
	}
}

func newLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(perSec), perSec*burstMultiplier)
}

func rateLimit(perSec int) rate.Limit {
	if perSec <= 0 {
		return rate.Inf
	}

	return rate.Limit(perSec)
}

func burst(perSec int) int {
	if perSec <= 0 {
		return 0
	}

	return perSec * burstMultiplier
}

// WaitOutbound blocks until an outbound cloud sync update may proceed
// (spec.md §4.7: "acquiring may block (bounded wait: caller's retry
// window)").
func (rl *RateLimiter) WaitOutbound(ctx context.Context) error {
	return waitLimiter(ctx, rl.outbound)
}

// AllowInbound reports whether a local request for key may proceed right
// now, charging both the aggregate inbound bucket and key's per-thing
// bucket. It never blocks: spec.md §4.7 requires IPC handlers to fail fast
// with ErrThrottled rather than stall the caller.
func (rl *RateLimiter) AllowInbound(key ShadowKey) error {
	if !allowLimiter(rl.inboundTotal) {
		return ErrThrottled
	}

	if !rl.allowPerThing(key.ThingName) {
		return ErrThrottled
	}

	return nil
}

func (rl *RateLimiter) allowPerThing(thingName string) bool {
	if rl.perThingLimit == rate.Inf {
		return true
	}

	entryAny, _ := rl.perThing.LoadOrStore(thingName, &perThingLimiter{
		limiter: rate.NewLimiter(rl.perThingLimit, rl.perThingBurst),
	})
	entry := entryAny.(*perThingLimiter)

	entry.mu.Lock()
	entry.lastUsed = time.Now()
	entry.mu.Unlock()

	return entry.limiter.Allow()
}

func allowLimiter(limiter *rate.Limiter) bool {
	if limiter == nil {
		return true
	}

	return limiter.Allow()
}

// EvictIdle drops per-thing limiter state untouched since the idle
// threshold, bounding memory use as things come and go.
func (rl *RateLimiter) EvictIdle(now time.Time) {
	rl.perThing.Range(func(k, v any) bool {
		entry := v.(*perThingLimiter)

		entry.mu.Lock()
		idle := now.Sub(entry.lastUsed) > rl.idleEvictAfter
		entry.mu.Unlock()

		if idle {
			rl.perThing.Delete(k)
		}

		return true
	})
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}

	return limiter.Wait(ctx)
}
