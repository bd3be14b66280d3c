package shadow

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds a retry loop's attempt count and exponential backoff,
// mirroring the teacher's calcBackoff shape (base/cap/factor) but delegated
// to github.com/sethvargo/go-retry instead of hand-rolled jitter math.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy governs ordinary sync-request execution: 5 attempts,
// exponential backoff starting at 3s, capped at 60s (spec.md §7).
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 5, BaseDelay: 3 * time.Second, MaxDelay: 60 * time.Second}

// FallbackRetryPolicy governs the slower retry window used once a request
// has exhausted a retry window, been re-queued, and come back from the
// queue unchanged (spec.md §7): 3 attempts, starting at 30s, capped at 120s.
var FallbackRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 30 * time.Second, MaxDelay: 120 * time.Second}

// Retryer runs a SyncRequest's Execute under a RetryPolicy, retrying only
// on TagRetryable errors (spec.md §7). TagConflict and TagUnknownShadow are
// returned to the caller unretried so they can escalate to a FullSync;
// TagInterrupted propagates immediately since it means the process is
// shutting down.
//
// go-retry sleeps on the real wall clock rather than the injectable Clock
// used elsewhere in this package; tests exercise retry classification and
// attempt counts directly against RetryPolicy rather than through Run.
type Retryer struct {
	Policy RetryPolicy
	Logger *slog.Logger
}

// NewRetryer builds a Retryer with the given policy.
func NewRetryer(policy RetryPolicy, logger *slog.Logger) *Retryer {
	return &Retryer{Policy: policy, Logger: logger}
}

// Run executes req.Execute(ctx, rc), retrying transient failures per the
// policy. It returns the last error seen once attempts are exhausted, or
// immediately on a non-retryable classification.
func (r *Retryer) Run(ctx context.Context, req SyncRequest, rc *RequestContext) error {
	backoff := retry.NewExponential(r.Policy.BaseDelay)
	backoff = retry.WithMaxRetries(uint64(r.Policy.MaxAttempts-1), backoff)
	backoff = retry.WithCapped(r.Policy.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(25, backoff)

	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		err := req.Execute(ctx, rc)
		if err == nil {
			return nil
		}

		switch TagOf(err) {
		case TagRetryable:
			r.Logger.Warn("retrying sync request",
				"key", req.Key().String(),
				"kind", req.Kind().String(),
				"attempt", attempt,
				"error", err)

			return retry.RetryableError(err)
		case TagInterrupted:
			return err
		default:
			return err
		}
	})
}
