package shadow

import (
	"context"
	"errors"
)

// fakeSyncStore is a map-backed Store fake supporting sync-information
// persistence, unlike fakeLocalStore (which stubs it out entirely) — the
// request-level Execute/IsUpdateNecessary tests need real round-tripping.
type fakeSyncStore struct {
	docs          map[ShadowKey]*ShadowDocument
	info          map[ShadowKey]*SyncInformation
	deletedLocal  map[ShadowKey]int64
	hasDeletedVer map[ShadowKey]bool
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		docs:          make(map[ShadowKey]*ShadowDocument),
		info:          make(map[ShadowKey]*SyncInformation),
		deletedLocal:  make(map[ShadowKey]int64),
		hasDeletedVer: make(map[ShadowKey]bool),
	}
}

func (s *fakeSyncStore) GetShadowThing(_ context.Context, key ShadowKey) (*ShadowDocument, error) {
	return s.docs[key], nil
}

func (s *fakeSyncStore) UpdateShadowThing(_ context.Context, key ShadowKey, payload []byte, version int64) (*ShadowDocument, error) {
	doc := &ShadowDocument{ThingName: key.ThingName, ShadowName: key.ShadowName, State: payload, Version: version}
	s.docs[key] = doc

	return doc, nil
}

func (s *fakeSyncStore) DeleteShadowThing(_ context.Context, key ShadowKey) (*ShadowDocument, error) {
	existing := s.docs[key]
	delete(s.docs, key)

	return existing, nil
}

func (s *fakeSyncStore) GetDeletedShadowVersion(_ context.Context, key ShadowKey) (int64, bool, error) {
	return s.deletedLocal[key], s.hasDeletedVer[key], nil
}

func (s *fakeSyncStore) GetShadowSyncInformation(_ context.Context, key ShadowKey) (*SyncInformation, error) {
	return s.info[key], nil
}

func (s *fakeSyncStore) UpdateSyncInformation(_ context.Context, info *SyncInformation) error {
	s.info[info.Key()] = info
	return nil
}

func (s *fakeSyncStore) InsertSyncInfoIfNotExists(_ context.Context, info *SyncInformation) (bool, error) {
	if _, ok := s.info[info.Key()]; ok {
		return false, nil
	}

	s.info[info.Key()] = info

	return true, nil
}

func (s *fakeSyncStore) DeleteSyncInformation(_ context.Context, key ShadowKey) error {
	delete(s.info, key)
	return nil
}

func (s *fakeSyncStore) ListSyncedShadows(context.Context) ([]ShadowKey, error) {
	keys := make([]ShadowKey, 0, len(s.info))
	for k := range s.info {
		keys = append(keys, k)
	}

	return keys, nil
}

func (s *fakeSyncStore) ListNamedShadowsForThing(context.Context, string, int, int) ([]string, error) {
	return nil, nil
}

// fakeLocal records Update/Delete calls against its own backing map,
// standing in for the production StoreLocalHandler in request-level tests.
type fakeLocal struct {
	docs    map[ShadowKey][]byte
	version map[ShadowKey]int64
	failErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{docs: make(map[ShadowKey][]byte), version: make(map[ShadowKey]int64)}
}

func (l *fakeLocal) Update(_ context.Context, key ShadowKey, payload []byte) (*LocalUpdateResult, error) {
	if l.failErr != nil {
		return nil, l.failErr
	}

	l.version[key]++
	l.docs[key] = payload

	return &LocalUpdateResult{Version: l.version[key], CurrentDocument: payload}, nil
}

func (l *fakeLocal) Delete(_ context.Context, key ShadowKey) error {
	if l.failErr != nil {
		return l.failErr
	}

	delete(l.docs, key)

	return nil
}

// fakeCloud records calls and returns scripted responses, standing in for
// internal/cloudshadow.Client in request-level tests.
type fakeCloud struct {
	getDoc    *ShadowDocument
	getErr    error
	updateDoc *ShadowDocument
	updateErr error
	deleteErr error

	updates []shadowCall
	deletes []ShadowKey
	gets    []ShadowKey
}

type shadowCall struct {
	key     ShadowKey
	payload []byte
}

func (c *fakeCloud) GetThingShadow(_ context.Context, key ShadowKey) (*ShadowDocument, error) {
	c.gets = append(c.gets, key)
	return c.getDoc, c.getErr
}

func (c *fakeCloud) UpdateThingShadow(_ context.Context, key ShadowKey, payload []byte) (*ShadowDocument, error) {
	c.updates = append(c.updates, shadowCall{key: key, payload: payload})

	if c.updateErr != nil {
		return nil, c.updateErr
	}

	return c.updateDoc, nil
}

func (c *fakeCloud) DeleteThingShadow(_ context.Context, key ShadowKey) error {
	c.deletes = append(c.deletes, key)
	return c.deleteErr
}

var errBoom = errors.New("boom")
