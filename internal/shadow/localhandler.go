package shadow

import (
	"context"
	"fmt"
)

// StoreLocalHandler is the production LocalHandler: it applies
// cloud-originated writes directly to Store, the same DAO the IPC layer
// reads and writes for device-originated requests (spec.md §4.3.1/§4.3.2,
// "LocalUpdateSyncRequest ... results in calling some local handler").
type StoreLocalHandler struct {
	store Store
}

// NewStoreLocalHandler builds a StoreLocalHandler over store.
func NewStoreLocalHandler(store Store) *StoreLocalHandler {
	return &StoreLocalHandler{store: store}
}

// Update persists payload as the new local document, incrementing the
// local version the same way HandleUpdate does for a device-originated
// write (internal/ipc.Handler.HandleUpdate), so both write paths produce
// identically-shaped versions.
func (h *StoreLocalHandler) Update(ctx context.Context, key ShadowKey, payload []byte) (*LocalUpdateResult, error) {
	current, err := h.store.GetShadowThing(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("shadow: local handler get %s: %w", key, err)
	}

	var nextVersion int64
	if current != nil {
		nextVersion = current.Version + 1
	} else {
		nextVersion = 1
	}

	doc, err := h.store.UpdateShadowThing(ctx, key, payload, nextVersion)
	if err != nil {
		return nil, fmt.Errorf("shadow: local handler update %s: %w", key, err)
	}

	return &LocalUpdateResult{Version: doc.Version, CurrentDocument: doc.State}, nil
}

// Delete removes the local document for key.
func (h *StoreLocalHandler) Delete(ctx context.Context, key ShadowKey) error {
	if _, err := h.store.DeleteShadowThing(ctx, key); err != nil {
		return fmt.Errorf("shadow: local handler delete %s: %w", key, err)
	}

	return nil
}
