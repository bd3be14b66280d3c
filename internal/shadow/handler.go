package shadow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler is the Sync Handler facade (spec.md §4.9): it owns the active
// Strategy, Direction, configured sync set, and a transferable Queue, and
// exposes the push/full-sync/reconfigure operations other components call.
// It never reaches back into its collaborators beyond the RequestContext it
// hands to requests and strategies, breaking the cyclic ownership spec.md
// §9 warns against.
type Handler struct {
	mu        sync.RWMutex
	rc        *RequestContext
	queue     *Queue
	strategy  Strategy
	direction *DirectionHolder
	syncSet   map[ShadowKey]struct{}
	rateLimit *RateLimiter
	logger    *slog.Logger
}

// HandlerConfig bundles Handler's dependencies.
type HandlerConfig struct {
	Store       Store
	Cloud       CloudClient
	Local       LocalHandler
	Clock       Clock
	Logger      *slog.Logger
	QueueCap    int
	Direction   Direction
	RateLimiter *RateLimiter
}

// NewHandler builds a Handler with a fresh queue and lock table, and no
// strategy started yet (call SetStrategy to start one).
func NewHandler(cfg HandlerConfig) *Handler {
	rc := &RequestContext{
		Store:  cfg.Store,
		Cloud:  cfg.Cloud,
		Local:  cfg.Local,
		Locks:  NewLockTable(),
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	}

	return &Handler{
		rc:        rc,
		queue:     NewQueue(cfg.QueueCap),
		direction: NewDirectionHolder(cfg.Direction),
		syncSet:   make(map[ShadowKey]struct{}),
		rateLimit: cfg.RateLimiter,
		logger:    cfg.Logger,
	}
}

// SetSyncSet replaces the set of (thing, shadow) keys under synchronization
// (spec.md §4.9/§6, driven by config hot-reload).
func (h *Handler) SetSyncSet(keys []ShadowKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := make(map[ShadowKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	h.syncSet = set
}

// Locks exposes the shared per-shadow lock table so the IPC layer can
// serialize its writes against the sync executor's (spec.md §5 "Both the
// sync executor and IPC write handlers acquire the same lock").
func (h *Handler) Locks() *LockTable {
	return h.rc.Locks
}

func (h *Handler) isConfigured(key ShadowKey) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.syncSet[key]

	return ok
}

// SetStrategy stops the current strategy (if any), preserving the queue,
// and starts newStrategy over the same queue (spec.md §4.9).
func (h *Handler) SetStrategy(ctx context.Context, build func(rc *RequestContext, q *Queue) Strategy) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.strategy != nil {
		h.strategy.Stop()
	}

	h.strategy = build(h.rc, h.queue)

	return h.strategy.Start(ctx)
}

// SetDirection atomically swaps the sync direction and enqueues a full sync
// for every configured shadow (spec.md §4.8).
func (h *Handler) SetDirection(ctx context.Context, d Direction) error {
	h.direction.Set(d)

	return h.FullSyncOnStartup(ctx)
}

// FullSyncOnStartup enqueues a FullSyncRequest for every configured shadow
// (spec.md §4.9), used both at process startup and after a direction or
// connectivity change.
func (h *Handler) FullSyncOnStartup(ctx context.Context) error {
	h.mu.RLock()
	keys := make([]ShadowKey, 0, len(h.syncSet))
	for k := range h.syncSet {
		keys = append(keys, k)
	}
	h.mu.RUnlock()

	for _, k := range keys {
		if err := h.pushLocked(&FullSyncRequest{KeyV: k}); err != nil {
			return err
		}
	}

	return nil
}

// PushLocalUpdateSyncRequest enqueues a cloud-originated update to apply
// locally. Dropped if direction forbids cloud->local or the shadow isn't
// configured.
func (h *Handler) PushLocalUpdateSyncRequest(ctx context.Context, key ShadowKey, payload []byte) error {
	if !h.direction.Get().AllowsLocal() {
		return nil
	}

	if !h.isConfigured(key) {
		return Classify(TagUnknownShadow, key, ErrUnknownShadow)
	}

	return h.pushLocked(&LocalUpdateRequest{KeyV: key, Payload: payload})
}

// PushLocalDeleteSyncRequest enqueues a cloud-originated delete to apply
// locally.
func (h *Handler) PushLocalDeleteSyncRequest(ctx context.Context, key ShadowKey, deletedCloudVersion int64) error {
	if !h.direction.Get().AllowsLocal() {
		return nil
	}

	if !h.isConfigured(key) {
		return Classify(TagUnknownShadow, key, ErrUnknownShadow)
	}

	return h.pushLocked(&LocalDeleteRequest{KeyV: key, DeletedCloudVersion: deletedCloudVersion})
}

// PushCloudUpdateSyncRequest enqueues a local mutation to push to the
// cloud. Called by the IPC handler layer after a local write commits.
// Applies the inbound rate limit (spec.md §4.7) before enqueuing.
func (h *Handler) PushCloudUpdateSyncRequest(ctx context.Context, key ShadowKey, payload []byte) error {
	if !h.direction.Get().AllowsCloud() {
		return nil
	}

	if h.rateLimit != nil {
		if err := h.rateLimit.AllowInbound(key); err != nil {
			return err
		}
	}

	if !h.isConfigured(key) {
		return Classify(TagUnknownShadow, key, ErrUnknownShadow)
	}

	return h.pushLocked(&CloudUpdateRequest{KeyV: key, Payload: payload})
}

// PushCloudDeleteSyncRequest enqueues a local delete to push to the cloud.
func (h *Handler) PushCloudDeleteSyncRequest(ctx context.Context, key ShadowKey) error {
	if !h.direction.Get().AllowsCloud() {
		return nil
	}

	if h.rateLimit != nil {
		if err := h.rateLimit.AllowInbound(key); err != nil {
			return err
		}
	}

	if !h.isConfigured(key) {
		return Classify(TagUnknownShadow, key, ErrUnknownShadow)
	}

	return h.pushLocked(&CloudDeleteRequest{KeyV: key})
}

func (h *Handler) pushLocked(r SyncRequest) error {
	h.mu.RLock()
	strategy := h.strategy
	h.mu.RUnlock()

	if strategy == nil {
		return fmt.Errorf("shadow: handler has no active strategy")
	}

	return strategy.PutSyncRequest(r)
}

// Stop stops the active strategy, if any.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.strategy != nil {
		h.strategy.Stop()
	}
}
