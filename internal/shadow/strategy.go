package shadow

import "context"

// Strategy drives the sync queue, taking requests and running them through
// a Retryer (spec.md §4.5). RealTimeSyncStrategy and PeriodicSyncStrategy
// are the two implementations.
type Strategy interface {
	Start(ctx context.Context) error
	Stop()
	PutSyncRequest(r SyncRequest) error
	ClearSyncQueue()
	RemainingCapacity() int
}

// syncLoop is the algorithm shared by both strategies (spec.md §4.5): pull
// one request (blocking take() for real-time, non-blocking poll() for
// periodic) and run it, substituting a re-queued or escalated request when
// the first attempt fails, until getRequest reports nothing left to do or
// the queue stops.
func syncLoop(ctx context.Context, q *Queue, rc *RequestContext, getRequest func() (SyncRequest, error)) {
	for {
		req, err := getRequest()
		if err != nil {
			if err != ErrQueueStopping {
				rc.Logger.Error("sync loop: queue error", "error", err)
			}

			return
		}

		if req == nil {
			return
		}

		runRequest(ctx, q, rc, req)
	}
}

// runRequest executes req to completion (including any re-queue/escalate
// detours spec.md §4.5 describes), then returns control to syncLoop for
// the next getRequest().
func runRequest(ctx context.Context, q *Queue, rc *RequestContext, req SyncRequest) {
	policy := DefaultRetryPolicy

	for req != nil {
		necessary, err := req.IsUpdateNecessary(ctx, rc)
		if err == nil && !necessary {
			return
		}

		if err == nil {
			retryer := NewRetryer(policy, rc.Logger)
			err = retryer.Run(ctx, req, rc)

			if err == nil {
				return
			}
		}

		switch TagOf(err) {
		case TagRetryable:
			next, offerErr := q.OfferAndTake(req, false)
			if offerErr != nil {
				rc.Logger.Error("sync loop: re-queue after retryable error failed", "error", offerErr)
				return
			}

			if next == req {
				// Came back identical: nothing else is contending for this
				// key. Slow down so a persistently failing request doesn't
				// spin the loop at the default backoff's pace.
				policy = FallbackRetryPolicy
			} else {
				policy = DefaultRetryPolicy
			}

			req = next
		case TagConflict, TagUnknownShadow:
			full := &FullSyncRequest{KeyV: req.Key()}

			next, offerErr := q.OfferAndTake(full, true)
			if offerErr != nil {
				rc.Logger.Error("sync loop: escalate to full sync failed", "error", offerErr)
				return
			}

			req = next
			policy = DefaultRetryPolicy
		case TagInterrupted:
			return
		default:
			rc.Logger.Warn("sync loop: dropping request after error",
				"key", req.Key().String(), "kind", req.Kind().String(), "error", err)

			return
		}
	}
}
