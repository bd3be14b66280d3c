package shadow

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultRealTimeWorkers is the default worker count for
// RealTimeSyncStrategy (spec.md §4.5.1).
const DefaultRealTimeWorkers = 1

// realTimeStopWait bounds how long Stop waits for workers to exit before
// giving up and logging (spec.md §4.5.1).
const realTimeStopWait = 30 * time.Second

// RealTimeSyncStrategy spawns a fixed pool of workers, each running
// syncLoop with a blocking Queue.Take, draining requests as they arrive
// (spec.md §4.5.1). Modeled on the teacher's dispatchPool: a bounded
// errgroup rather than per-worker channels.
type RealTimeSyncStrategy struct {
	rc          *RequestContext
	queue       *Queue
	parallelism int
	logger      *slog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewRealTimeSyncStrategy builds a RealTimeSyncStrategy over queue with the
// given worker count (DefaultRealTimeWorkers if non-positive).
func NewRealTimeSyncStrategy(rc *RequestContext, queue *Queue, parallelism int) *RealTimeSyncStrategy {
	if parallelism <= 0 {
		parallelism = DefaultRealTimeWorkers
	}

	return &RealTimeSyncStrategy{rc: rc, queue: queue, parallelism: parallelism, logger: rc.Logger}
}

// Start spawns the worker pool.
func (s *RealTimeSyncStrategy) Start(ctx context.Context) error {
	s.queue.Reopen()

	ctx, s.cancel = context.WithCancel(ctx)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	s.group = group

	for range s.parallelism {
		group.Go(func() error {
			s.worker(gctx)
			return nil
		})
	}

	s.logger.Info("real-time sync strategy started", "workers", s.parallelism)

	return nil
}

func (s *RealTimeSyncStrategy) worker(ctx context.Context) {
	syncLoop(ctx, s.queue, s.rc, func() (SyncRequest, error) {
		return s.queue.Take()
	})
}

// Stop cancels all workers and waits up to 30s for them to exit.
func (s *RealTimeSyncStrategy) Stop() {
	s.queue.Stop()

	if s.cancel != nil {
		s.cancel()
	}

	if s.group == nil {
		return
	}

	done := make(chan struct{})

	go func() {
		s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(realTimeStopWait):
		s.logger.Warn("real-time sync strategy: workers did not exit within stop window")
	}
}

// PutSyncRequest enqueues r.
func (s *RealTimeSyncStrategy) PutSyncRequest(r SyncRequest) error {
	return s.queue.Put(r)
}

// ClearSyncQueue empties the queue without stopping it.
func (s *RealTimeSyncStrategy) ClearSyncQueue() {
	s.queue.Clear()
}

// RemainingCapacity reports the queue's remaining capacity.
func (s *RealTimeSyncStrategy) RemainingCapacity() int {
	return s.queue.RemainingCapacity()
}
