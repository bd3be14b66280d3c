package shadow

import "sync/atomic"

// DirectionHolder provides an atomically swappable sync direction, in the
// same spirit as config.Holder's atomic-swap snapshot pattern: a config
// reload can redirect sync without tearing down the Sync Handler.
type DirectionHolder struct {
	v atomic.Int32
}

// NewDirectionHolder builds a DirectionHolder starting at d.
func NewDirectionHolder(d Direction) *DirectionHolder {
	h := &DirectionHolder{}
	h.v.Store(int32(d))

	return h
}

// Get returns the current direction.
func (h *DirectionHolder) Get() Direction {
	return Direction(h.v.Load())
}

// Set atomically replaces the current direction.
func (h *DirectionHolder) Set(d Direction) {
	h.v.Store(int32(d))
}
