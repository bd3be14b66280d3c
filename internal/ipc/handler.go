package ipc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// Store is the subset of shadow.Store the IPC layer reads and writes
// directly (sync metadata is owned by the sync engine, not the IPC layer).
type Store interface {
	GetShadowThing(ctx context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error)
	UpdateShadowThing(ctx context.Context, key shadow.ShadowKey, payload []byte, version int64) (*shadow.ShadowDocument, error)
	DeleteShadowThing(ctx context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error)
	ListNamedShadowsForThing(ctx context.Context, thingName string, offset, limit int) ([]string, error)
}

// SyncHandler is the subset of shadow.Handler the IPC layer calls after a
// local write commits, to propagate the change toward the cloud.
type SyncHandler interface {
	PushCloudUpdateSyncRequest(ctx context.Context, key shadow.ShadowKey, payload []byte) error
	PushCloudDeleteSyncRequest(ctx context.Context, key shadow.ShadowKey) error
}

// RateLimiter is the inbound side of shadow.RateLimiter.
type RateLimiter interface {
	AllowInbound(key shadow.ShadowKey) error
}

// UpdateRequest is the payload for HandleUpdate.
type UpdateRequest struct {
	Key     shadow.ShadowKey
	Payload []byte
	// Version, if non-nil, must equal the shadow's current version or the
	// request fails with ConflictError (spec.md §4.10 "optimistic
	// concurrency").
	Version *int64
}

// UpdateResponse is returned by HandleUpdate.
type UpdateResponse struct {
	Payload         []byte
	CurrentDocument []byte
}

// DeleteRequest is the payload for HandleDelete.
type DeleteRequest struct {
	Key     shadow.ShadowKey
	Version *int64
}

// ListResponse is returned by HandleListNamedShadowsForThing. NextToken is
// empty once the final page has been returned.
type ListResponse struct {
	ShadowNames []string
	NextToken   string
}

// Handler implements spec.md §4.10's four IPC operations.
type Handler struct {
	store       Store
	syncHandler SyncHandler
	rateLimit   RateLimiter
	locks       *shadow.LockTable
	sizeLimit   func() int
	logger      *slog.Logger
}

// NewHandler builds a Handler. sizeLimit is called on every HandleUpdate to
// read the current ConfigSnapshot.ShadowDocumentSizeLimitBytes, so config
// hot-reloads take effect without reconstructing the Handler. rateLimit may
// be nil to disable inbound throttling (e.g. in tests). locks must be the
// same *shadow.LockTable the sync engine's Handler uses (shadow.Handler.Locks),
// so IPC writes and sync execution for a key are totally ordered (spec.md §5).
func NewHandler(store Store, syncHandler SyncHandler, rateLimit RateLimiter, locks *shadow.LockTable, sizeLimit func() int, logger *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		syncHandler: syncHandler,
		rateLimit:   rateLimit,
		locks:       locks,
		sizeLimit:   sizeLimit,
		logger:      logger,
	}
}

// HandleGet reads the current local shadow document (spec.md §4.10).
func (h *Handler) HandleGet(ctx context.Context, key shadow.ShadowKey) ([]byte, error) {
	if err := h.checkRate(key); err != nil {
		return nil, err
	}

	doc, err := h.store.GetShadowThing(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ipc: get shadow %s: %w", key, err)
	}

	if doc == nil {
		return nil, newNotFoundError()
	}

	return doc.State, nil
}

// HandleUpdate validates and applies a local shadow mutation, then
// propagates it toward the cloud (spec.md §4.10).
func (h *Handler) HandleUpdate(ctx context.Context, req UpdateRequest, serviceName string) (UpdateResponse, error) {
	if err := h.checkRate(req.Key); err != nil {
		return UpdateResponse{}, err
	}

	if limit := h.sizeLimit(); limit > 0 && len(req.Payload) > limit {
		return UpdateResponse{}, &InvalidArgumentsError{
			Message: fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", len(req.Payload), limit),
		}
	}

	if h.locks != nil {
		handle := h.locks.Acquire(req.Key)
		defer handle.Release()
	}

	current, err := h.store.GetShadowThing(ctx, req.Key)
	if err != nil {
		return UpdateResponse{}, fmt.Errorf("ipc: get shadow %s: %w", req.Key, err)
	}

	var currentVersion int64
	if current != nil {
		currentVersion = current.Version
	}

	if req.Version != nil && *req.Version != currentVersion {
		return UpdateResponse{}, &ConflictError{Code: 409, CurrentVersion: currentVersion}
	}

	doc, err := h.store.UpdateShadowThing(ctx, req.Key, req.Payload, currentVersion+1)
	if err != nil {
		return UpdateResponse{}, fmt.Errorf("ipc: update shadow %s (service %s): %w", req.Key, serviceName, err)
	}

	requestID := uuid.NewString()

	if err := h.syncHandler.PushCloudUpdateSyncRequest(ctx, req.Key, doc.State); err != nil {
		h.logger.Warn("ipc: enqueue cloud update failed",
			"request_id", requestID, "key", req.Key.String(), "service", serviceName, "error", err)
	}

	return UpdateResponse{Payload: doc.State, CurrentDocument: doc.State}, nil
}

// HandleDelete validates and applies a local shadow deletion, then
// propagates it toward the cloud (spec.md §4.10).
func (h *Handler) HandleDelete(ctx context.Context, req DeleteRequest, serviceName string) error {
	if err := h.checkRate(req.Key); err != nil {
		return err
	}

	if h.locks != nil {
		handle := h.locks.Acquire(req.Key)
		defer handle.Release()
	}

	current, err := h.store.GetShadowThing(ctx, req.Key)
	if err != nil {
		return fmt.Errorf("ipc: get shadow %s: %w", req.Key, err)
	}

	if current == nil {
		return newNotFoundError()
	}

	if req.Version != nil && *req.Version != current.Version {
		return &ConflictError{Code: 409, CurrentVersion: current.Version}
	}

	if _, err := h.store.DeleteShadowThing(ctx, req.Key); err != nil {
		return fmt.Errorf("ipc: delete shadow %s (service %s): %w", req.Key, serviceName, err)
	}

	requestID := uuid.NewString()

	if err := h.syncHandler.PushCloudDeleteSyncRequest(ctx, req.Key); err != nil {
		h.logger.Warn("ipc: enqueue cloud delete failed",
			"request_id", requestID, "key", req.Key.String(), "service", serviceName, "error", err)
	}

	return nil
}

// HandleListNamedShadowsForThing lists the named (non-classic) shadows
// configured for thing, paginated by an opaque base64 offset token
// (spec.md §4.10, §8 boundary behaviors). Negative offset/limit handling
// is delegated to the store, whose SQL LIMIT/OFFSET clauses already treat
// negative values the way spec.md §8 requires (no limit / zero offset).
func (h *Handler) HandleListNamedShadowsForThing(ctx context.Context, thing string, pageSize int, nextToken string) (ListResponse, error) {
	offset, err := decodeToken(nextToken)
	if err != nil {
		return ListResponse{}, err
	}

	names, err := h.store.ListNamedShadowsForThing(ctx, thing, offset, pageSize)
	if err != nil {
		return ListResponse{}, fmt.Errorf("ipc: list named shadows for %s: %w", thing, err)
	}

	resp := ListResponse{ShadowNames: names}
	if pageSize > 0 && len(names) == pageSize {
		resp.NextToken = encodeToken(offset + pageSize)
	}

	return resp, nil
}

func (h *Handler) checkRate(key shadow.ShadowKey) error {
	if h.rateLimit == nil {
		return nil
	}

	if err := h.rateLimit.AllowInbound(key); err != nil {
		if errors.Is(err, shadow.ErrThrottled) {
			return newThrottledError()
		}

		return err
	}

	return nil
}

func decodeToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}

	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, &InvalidArgumentsError{Message: "malformed nextToken"}
	}

	offset, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, &InvalidArgumentsError{Message: "malformed nextToken"}
	}

	return offset, nil
}

func encodeToken(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}
