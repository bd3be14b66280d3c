package ipc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	docs map[shadow.ShadowKey]*shadow.ShadowDocument
	names map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[shadow.ShadowKey]*shadow.ShadowDocument), names: make(map[string][]string)}
}

func (s *fakeStore) GetShadowThing(_ context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	return s.docs[key], nil
}

func (s *fakeStore) UpdateShadowThing(_ context.Context, key shadow.ShadowKey, payload []byte, version int64) (*shadow.ShadowDocument, error) {
	doc := &shadow.ShadowDocument{ThingName: key.ThingName, ShadowName: key.ShadowName, State: payload, Version: version}
	s.docs[key] = doc

	return doc, nil
}

func (s *fakeStore) DeleteShadowThing(_ context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	existing := s.docs[key]
	delete(s.docs, key)

	return existing, nil
}

func (s *fakeStore) ListNamedShadowsForThing(_ context.Context, thing string, offset, limit int) ([]string, error) {
	all := s.names[thing]

	if offset < 0 {
		offset = 0
	}

	if offset >= len(all) {
		return nil, nil
	}

	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return all[offset:end], nil
}

type fakeSyncHandler struct {
	updateCalls []shadow.ShadowKey
	deleteCalls []shadow.ShadowKey
}

func (f *fakeSyncHandler) PushCloudUpdateSyncRequest(_ context.Context, key shadow.ShadowKey, _ []byte) error {
	f.updateCalls = append(f.updateCalls, key)
	return nil
}

func (f *fakeSyncHandler) PushCloudDeleteSyncRequest(_ context.Context, key shadow.ShadowKey) error {
	f.deleteCalls = append(f.deleteCalls, key)
	return nil
}

func noLimit() int { return 0 }

func TestHandleGet_NotFound(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeSyncHandler{}, nil, nil, noLimit, discardLogger())

	_, err := h.HandleGet(context.Background(), shadow.ShadowKey{ThingName: "t1"})
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Code)
}

func TestHandleUpdate_CreatesAndPropagates(t *testing.T) {
	store := newFakeStore()
	sh := &fakeSyncHandler{}
	h := NewHandler(store, sh, nil, nil, noLimit, discardLogger())

	key := shadow.ShadowKey{ThingName: "t1"}
	resp, err := h.HandleUpdate(context.Background(), UpdateRequest{Key: key, Payload: []byte(`{"state":{"reported":{"on":true}}}`)}, "test-service")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"state":{"reported":{"on":true}}}`), resp.Payload)
	assert.Equal(t, int64(1), store.docs[key].Version)
	assert.Equal(t, []shadow.ShadowKey{key}, sh.updateCalls)
}

func TestHandleUpdate_VersionConflict(t *testing.T) {
	store := newFakeStore()
	key := shadow.ShadowKey{ThingName: "t1"}
	store.docs[key] = &shadow.ShadowDocument{ThingName: "t1", Version: 5}

	h := NewHandler(store, &fakeSyncHandler{}, nil, nil, noLimit, discardLogger())

	bad := int64(3)
	_, err := h.HandleUpdate(context.Background(), UpdateRequest{Key: key, Payload: []byte(`{}`), Version: &bad}, "test-service")
	require.Error(t, err)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, int64(5), conflictErr.CurrentVersion)
}

func TestHandleUpdate_PayloadTooLarge(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeSyncHandler{}, nil, nil, func() int { return 4 }, discardLogger())

	_, err := h.HandleUpdate(context.Background(), UpdateRequest{Key: shadow.ShadowKey{ThingName: "t1"}, Payload: []byte(`12345`)}, "test-service")
	require.Error(t, err)

	var argErr *InvalidArgumentsError
	require.ErrorAs(t, err, &argErr)
}

func TestHandleUpdate_PayloadExactlyAtLimitAccepted(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store, &fakeSyncHandler{}, nil, nil, func() int { return 5 }, discardLogger())

	_, err := h.HandleUpdate(context.Background(), UpdateRequest{Key: shadow.ShadowKey{ThingName: "t1"}, Payload: []byte(`12345`)}, "test-service")
	require.NoError(t, err)
}

type throttleAllLimiter struct{}

func (throttleAllLimiter) AllowInbound(shadow.ShadowKey) error { return shadow.ErrThrottled }

func TestHandleGet_Throttled(t *testing.T) {
	h := NewHandler(newFakeStore(), &fakeSyncHandler{}, throttleAllLimiter{}, nil, noLimit, discardLogger())

	_, err := h.HandleGet(context.Background(), shadow.ShadowKey{ThingName: "t1"})
	require.Error(t, err)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 429, svcErr.Code)
}

func TestHandleDelete_PropagatesToCloud(t *testing.T) {
	store := newFakeStore()
	key := shadow.ShadowKey{ThingName: "t1"}
	store.docs[key] = &shadow.ShadowDocument{ThingName: "t1", Version: 2}
	sh := &fakeSyncHandler{}

	h := NewHandler(store, sh, nil, nil, noLimit, discardLogger())

	err := h.HandleDelete(context.Background(), DeleteRequest{Key: key}, "test-service")
	require.NoError(t, err)
	assert.Nil(t, store.docs[key])
	assert.Equal(t, []shadow.ShadowKey{key}, sh.deleteCalls)
}

func TestHandleListNamedShadowsForThing_PaginationAndToken(t *testing.T) {
	store := newFakeStore()
	store.names["t1"] = []string{"a", "b", "c"}

	h := NewHandler(store, &fakeSyncHandler{}, nil, nil, noLimit, discardLogger())

	first, err := h.HandleListNamedShadowsForThing(context.Background(), "t1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, first.ShadowNames)
	assert.NotEmpty(t, first.NextToken)

	second, err := h.HandleListNamedShadowsForThing(context.Background(), "t1", 2, first.NextToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, second.ShadowNames)
	assert.Empty(t, second.NextToken)
}

func TestHandleListNamedShadowsForThing_NegativeLimitIgnored(t *testing.T) {
	store := newFakeStore()
	store.names["t1"] = []string{"a", "b"}

	h := NewHandler(store, &fakeSyncHandler{}, nil, nil, noLimit, discardLogger())

	resp, err := h.HandleListNamedShadowsForThing(context.Background(), "t1", -1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.ShadowNames)
}
