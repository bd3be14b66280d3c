package shadow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PutTake_FIFOByFirstArrival(t *testing.T) {
	q := NewQueue(8)

	a := &LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}, Payload: []byte(`{}`)}
	b := &LocalUpdateRequest{KeyV: ShadowKey{ThingName: "b"}, Payload: []byte(`{}`)}

	require.NoError(t, q.Put(a))
	require.NoError(t, q.Put(b))

	first, err := q.Take()
	require.NoError(t, err)
	assert.Equal(t, ShadowKey{ThingName: "a"}, first.Key())

	second, err := q.Take()
	require.NoError(t, err)
	assert.Equal(t, ShadowKey{ThingName: "b"}, second.Key())
}

func TestQueue_Put_MergesSameKey(t *testing.T) {
	q := NewQueue(8)
	key := ShadowKey{ThingName: "thing-1"}

	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: key, Payload: []byte(`{"a":1}`)}))
	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: key, Payload: []byte(`{"b":2}`)}))

	assert.Equal(t, 1, q.Size())

	merged, err := q.Take()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":2}`, string(merged.(*LocalUpdateRequest).Payload))
}

func TestQueue_Take_BlocksUntilPut(t *testing.T) {
	q := NewQueue(8)
	key := ShadowKey{ThingName: "thing-1"}

	result := make(chan SyncRequest, 1)

	go func() {
		r, err := q.Take()
		if err == nil {
			result <- r
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: key}))

	select {
	case r := <-result:
		assert.Equal(t, key, r.Key())
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after Put")
	}
}

func TestQueue_Put_BlocksAtCapacityForNewKeys(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}))

	putDone := make(chan error, 1)

	go func() {
		putDone <- q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "b"}})
	}()

	select {
	case <-putDone:
		t.Fatal("Put for a new key should block while queue is at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := q.Take()
	require.NoError(t, err)

	select {
	case err := <-putDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after capacity freed")
	}
}

func TestQueue_Stop_UnblocksPendingTakeAndPut(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}))

	takeErr := make(chan error, 1)
	putErr := make(chan error, 1)

	go func() {
		_, err := q.Take()
		takeErr <- err
		_, err = q.Take()
		takeErr <- err
	}()

	go func() {
		putErr <- q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "b"}})
	}()

	time.Sleep(10 * time.Millisecond)
	q.Stop()

	select {
	case err := <-putErr:
		assert.ErrorIs(t, err, ErrQueueStopping)
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock on Stop")
	}

	<-takeErr

	select {
	case err := <-takeErr:
		assert.ErrorIs(t, err, ErrQueueStopping)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock on Stop")
	}
}

func TestQueue_Reopen_AllowsReuse(t *testing.T) {
	q := NewQueue(8)
	q.Stop()

	assert.ErrorIs(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}), ErrQueueStopping)

	q.Reopen()

	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}))
	assert.Equal(t, 1, q.Size())
}

func TestQueue_Poll_NonBlockingEmpty(t *testing.T) {
	q := NewQueue(8)

	r, err := q.Poll()
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestQueue_RemainingCapacity(t *testing.T) {
	q := NewQueue(4)
	assert.Equal(t, 4, q.RemainingCapacity())

	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}))
	assert.Equal(t, 3, q.RemainingCapacity())
}

func TestQueue_OfferAndTake_RetryMeSignalWhenAlone(t *testing.T) {
	q := NewQueue(8)
	key := ShadowKey{ThingName: "thing-1"}
	req := &LocalUpdateRequest{KeyV: key}

	next, err := q.OfferAndTake(req, false)
	require.NoError(t, err)
	assert.Same(t, req, next)
	assert.Equal(t, 0, q.Size())
}

func TestQueue_OfferAndTake_YieldsToOtherQueuedKey(t *testing.T) {
	q := NewQueue(8)
	other := ShadowKey{ThingName: "other"}

	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: other}))

	req := &LocalUpdateRequest{KeyV: ShadowKey{ThingName: "thing-1"}}
	next, err := q.OfferAndTake(req, false)

	require.NoError(t, err)
	assert.Equal(t, other, next.Key())
	assert.Equal(t, 1, q.Size())
}

func TestQueue_Clear_EmptiesWithoutStopping(t *testing.T) {
	q := NewQueue(8)
	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "a"}}))

	q.Clear()
	assert.Equal(t, 0, q.Size())

	require.NoError(t, q.Put(&LocalUpdateRequest{KeyV: ShadowKey{ThingName: "b"}}))
	assert.Equal(t, 1, q.Size())
}
