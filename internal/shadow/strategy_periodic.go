package shadow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// PeriodicSyncStrategy fires syncLoop on a fixed interval, draining the
// queue with Queue.Poll until empty each time (spec.md §4.5.2). An
// isRunning CAS guard drops a firing that overlaps a still-running
// previous one instead of queueing up concurrent drains.
type PeriodicSyncStrategy struct {
	rc       *RequestContext
	queue    *Queue
	delay    time.Duration
	logger   *slog.Logger

	isRunning atomic.Bool
	ticker    Ticker
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPeriodicSyncStrategy builds a PeriodicSyncStrategy firing every delay
// using rc.Clock's ticker (so tests can substitute a fake clock).
func NewPeriodicSyncStrategy(rc *RequestContext, queue *Queue, delay time.Duration) *PeriodicSyncStrategy {
	return &PeriodicSyncStrategy{rc: rc, queue: queue, delay: delay, logger: rc.Logger}
}

// Start begins the scheduled drain.
func (s *PeriodicSyncStrategy) Start(ctx context.Context) error {
	s.queue.Reopen()

	s.ticker = s.rc.Clock.NewTicker(s.delay)
	s.done = make(chan struct{})

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Info("periodic sync strategy started", "delay", s.delay)

	return nil
}

func (s *PeriodicSyncStrategy) loop(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.ticker.C():
			if !ok {
				return
			}

			s.fire(ctx)
		}
	}
}

func (s *PeriodicSyncStrategy) fire(ctx context.Context) {
	if !s.isRunning.CompareAndSwap(false, true) {
		s.logger.Warn("periodic sync strategy: previous firing still running, skipping")
		return
	}

	defer s.isRunning.Store(false)

	syncLoop(ctx, s.queue, s.rc, func() (SyncRequest, error) {
		return s.queue.Poll()
	})
}

// Stop cancels the scheduled task. Queued items are preserved for a
// subsequent strategy instance (spec.md §4.5.2): Stop does not call
// Queue.Stop or Queue.Clear.
func (s *PeriodicSyncStrategy) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}

	if s.cancel != nil {
		s.cancel()
	}

	if s.done != nil {
		<-s.done
	}
}

// PutSyncRequest enqueues r.
func (s *PeriodicSyncStrategy) PutSyncRequest(r SyncRequest) error {
	return s.queue.Put(r)
}

// ClearSyncQueue empties the queue without stopping it.
func (s *PeriodicSyncStrategy) ClearSyncQueue() {
	s.queue.Clear()
}

// RemainingCapacity reports the queue's remaining capacity.
func (s *PeriodicSyncStrategy) RemainingCapacity() int {
	return s.queue.RemainingCapacity()
}
