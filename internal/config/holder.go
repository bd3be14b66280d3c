package config

import "sync"

// Holder provides thread-safe access to an immutable *ConfigSnapshot and
// the config file path it was loaded from. The CLI context owns one Holder:
// a SIGHUP reload swaps the snapshot here and pushes the synchronize set and
// direction into the Sync Handler facade, and the IPC handler reads the
// document size limit through it on each update (spec.md §9's "global
// mutable config + listeners" reframing).
type Holder struct {
	mu   sync.RWMutex
	snap *ConfigSnapshot
	path string // immutable after construction
}

// NewHolder creates a Holder with the initial snapshot and recipe path.
func NewHolder(snap *ConfigSnapshot, path string) *Holder {
	return &Holder{
		snap: snap,
		path: path,
	}
}

// Snapshot returns the current config snapshot. Thread-safe (read lock).
// Callers must treat the returned value as immutable.
func (h *Holder) Snapshot() *ConfigSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.snap
}

// Path returns the recipe file path. Thread-safe without locking because
// the path is immutable after construction.
func (h *Holder) Path() string {
	return h.path
}

// Update swaps in a new snapshot. Thread-safe (write lock). Called on
// SIGHUP reload and when the core thing name is applied at startup; readers that
// already captured the previous snapshot keep operating on it undisturbed.
func (h *Holder) Update(snap *ConfigSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snap = snap
}
