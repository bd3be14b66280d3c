package shadow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocalStore struct {
	docs map[ShadowKey]*ShadowDocument
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{docs: make(map[ShadowKey]*ShadowDocument)}
}

func (s *fakeLocalStore) GetShadowThing(_ context.Context, key ShadowKey) (*ShadowDocument, error) {
	return s.docs[key], nil
}

func (s *fakeLocalStore) UpdateShadowThing(_ context.Context, key ShadowKey, payload []byte, version int64) (*ShadowDocument, error) {
	doc := &ShadowDocument{ThingName: key.ThingName, ShadowName: key.ShadowName, State: payload, Version: version}
	s.docs[key] = doc

	return doc, nil
}

func (s *fakeLocalStore) DeleteShadowThing(_ context.Context, key ShadowKey) (*ShadowDocument, error) {
	existing := s.docs[key]
	delete(s.docs, key)

	return existing, nil
}

func (s *fakeLocalStore) GetDeletedShadowVersion(context.Context, ShadowKey) (int64, bool, error) {
	return 0, false, nil
}
func (s *fakeLocalStore) GetShadowSyncInformation(context.Context, ShadowKey) (*SyncInformation, error) {
	return nil, nil
}
func (s *fakeLocalStore) UpdateSyncInformation(context.Context, *SyncInformation) error { return nil }
func (s *fakeLocalStore) InsertSyncInfoIfNotExists(context.Context, *SyncInformation) (bool, error) {
	return true, nil
}
func (s *fakeLocalStore) DeleteSyncInformation(context.Context, ShadowKey) error { return nil }
func (s *fakeLocalStore) ListSyncedShadows(context.Context) ([]ShadowKey, error) { return nil, nil }
func (s *fakeLocalStore) ListNamedShadowsForThing(context.Context, string, int, int) ([]string, error) {
	return nil, nil
}

func TestStoreLocalHandler_UpdateCreatesThenIncrements(t *testing.T) {
	store := newFakeLocalStore()
	h := NewStoreLocalHandler(store)
	key := ShadowKey{ThingName: "t1"}

	result, err := h.Update(context.Background(), key, []byte(`{"state":{}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version)

	result, err = h.Update(context.Background(), key, []byte(`{"state":{}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Version)
}

func TestStoreLocalHandler_Delete(t *testing.T) {
	store := newFakeLocalStore()
	key := ShadowKey{ThingName: "t1"}
	store.docs[key] = &ShadowDocument{ThingName: "t1", Version: 3}

	h := NewStoreLocalHandler(store)
	require.NoError(t, h.Delete(context.Background(), key))
	assert.Nil(t, store.docs[key])
}
