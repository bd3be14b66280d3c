package shadow

import (
	"container/list"
	"sync"
)

// DefaultQueueCapacity bounds the queue to apply backpressure (spec.md
// §3/§4.1).
const DefaultQueueCapacity = 1024

// Queue holds pending sync work with at most one entry per (thingName,
// shadowName), coalescing arrivals via Merge, in FIFO order by each key's
// first arrival (spec.md §4.1). It is the single source of truth for
// pending work — only the Queue mutates its internal map (spec.md §5).
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	capacity int
	index    map[ShadowKey]*list.Element // key -> node in order
	order    *list.List                  // FIFO of *queueEntry by first arrival
	stopping bool
}

type queueEntry struct {
	key ShadowKey
	req SyncRequest
}

// NewQueue creates a Queue bounded to capacity entries. A non-positive
// capacity is replaced by DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	q := &Queue{
		capacity: capacity,
		index:    make(map[ShadowKey]*list.Element),
		order:    list.New(),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q
}

// Put inserts r, or merges it into the existing entry for r's key,
// blocking while the queue is at capacity and the key is new (spec.md
// §4.1). Returns ErrQueueStopping if Stop was called while Put was
// blocked, or before Put could enqueue.
func (q *Queue) Put(r SyncRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.putLocked(r)
}

func (q *Queue) putLocked(r SyncRequest) error {
	if q.stopping {
		return ErrQueueStopping
	}

	key := r.Key()
	if el, ok := q.index[key]; ok {
		entry := el.Value.(*queueEntry)
		entry.req = Merge(entry.req, r)

		return nil
	}

	for len(q.index) >= q.capacity && !q.stopping {
		q.notFull.Wait()
	}

	if q.stopping {
		return ErrQueueStopping
	}

	el := q.order.PushBack(&queueEntry{key: key, req: r})
	q.index[key] = el
	q.notEmpty.Signal()

	return nil
}

// Take blocks until an entry is available and returns it, removing it from
// the queue. Returns ErrQueueStopping if the queue stops while blocked.
func (q *Queue) Take() (SyncRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.order.Len() == 0 && !q.stopping {
		q.notEmpty.Wait()
	}

	if q.order.Len() == 0 {
		return nil, ErrQueueStopping
	}

	return q.popFrontLocked(), nil
}

// Poll is the non-blocking form of Take: returns (nil, nil) if empty.
func (q *Queue) Poll() (SyncRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.order.Len() == 0 {
		return nil, nil
	}

	return q.popFrontLocked(), nil
}

func (q *Queue) popFrontLocked() SyncRequest {
	front := q.order.Front()
	entry := front.Value.(*queueEntry)
	q.order.Remove(front)
	delete(q.index, entry.key)
	q.notFull.Signal()

	return entry.req
}

// OfferAndTake atomically re-inserts (or merges) r for its key, then
// returns the next entry for the caller to work on. This implements
// spec.md §4.1's "replace/insert r, then return the next entry" contract
// used by workers pushing a retryable request back while pulling their
// next item. If isNew is false and r would become the head of the queue
// unchanged (no other arrival merged into it while it was outside the
// queue), OfferAndTake returns r itself, signalling "retry me" to the
// caller without giving another key a chance to starve r.
func (q *Queue) OfferAndTake(r SyncRequest, isNew bool) (SyncRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopping {
		return nil, ErrQueueStopping
	}

	key := r.Key()

	el, existed := q.index[key]

	var reinserted SyncRequest

	switch {
	case existed:
		entry := el.Value.(*queueEntry)
		if isNew {
			entry.req = Merge(entry.req, r)
		} else {
			entry.req = Merge(r, entry.req)
		}

		reinserted = entry.req
	default:
		el = q.order.PushBack(&queueEntry{key: key, req: r})
		q.index[key] = el
		reinserted = r
	}

	// If r is (still) alone at the head and nothing else is queued, hand
	// it straight back: that is the "retry me immediately" signal.
	if !isNew && q.order.Len() == 1 && q.order.Front() == el && reinserted == r {
		q.order.Remove(el)
		delete(q.index, key)
		q.notFull.Signal()

		return r, nil
	}

	q.notEmpty.Signal()

	for q.order.Len() == 0 && !q.stopping {
		q.notEmpty.Wait()
	}

	if q.order.Len() == 0 {
		return nil, ErrQueueStopping
	}

	return q.popFrontLocked(), nil
}

// Remove drops whatever entry is queued for key, if any, without checking
// which request it holds; callers use Remove only when they are certain of
// ownership, e.g. tests.
func (q *Queue) Remove(key ShadowKey) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if el, ok := q.index[key]; ok {
		q.order.Remove(el)
		delete(q.index, key)
		q.notFull.Signal()
	}
}

// Clear empties the queue without stopping it.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.index = make(map[ShadowKey]*list.Element)
	q.order.Init()
	q.notFull.Broadcast()
}

// Size returns the current number of queued (deduplicated) entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.order.Len()
}

// RemainingCapacity returns how many more distinct keys can be enqueued
// before Put blocks.
func (q *Queue) RemainingCapacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.capacity - q.order.Len()
}

// Stop marks the queue as stopping: blocked and future Put/Take/
// OfferAndTake calls return ErrQueueStopping. Already-queued entries
// remain retrievable via Poll so a caller (e.g. a strategy swap) can
// drain and transfer them.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopping = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Reopen clears the stopping flag, allowing a transferred Queue to be
// reused by a newly started strategy (spec.md §4.9's queue-transfer on
// strategy swap).
func (q *Queue) Reopen() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopping = false
}
