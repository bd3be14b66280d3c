package shadow

import "sync"

// LockTable is a concurrent map from ShadowKey to a lock handle, with
// reference counting so entries are released when no longer held (spec.md
// §9: "per-key locks obtained by string... avoid leaking one lock per seen
// key forever"). Both the sync executor and IPC write handlers acquire the
// same lock keyed by (thing, shadow), per spec.md §5.
type LockTable struct {
	mu      sync.Mutex
	entries map[ShadowKey]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLockTable creates an empty LockTable.
func NewLockTable() *LockTable {
	return &LockTable{entries: make(map[ShadowKey]*lockEntry)}
}

// LockHandle represents one held reference to a key's lock. Release must
// be called exactly once.
type LockHandle struct {
	table *LockTable
	key   ShadowKey
	entry *lockEntry
}

// Acquire blocks until the lock for key is held and returns a handle that
// must be Released exactly once.
func (t *LockTable) Acquire(key ShadowKey) *LockHandle {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}

	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	return &LockHandle{table: t, key: key, entry: e}
}

// Release unlocks the key's mutex and removes the table entry once no
// other goroutine holds a reference to it.
func (h *LockHandle) Release() {
	h.entry.mu.Unlock()

	t := h.table

	t.mu.Lock()
	h.entry.refs--

	if h.entry.refs == 0 {
		delete(t.entries, h.key)
	}

	t.mu.Unlock()
}

// Len reports the number of keys currently tracked (for tests asserting no
// lock leaks).
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
