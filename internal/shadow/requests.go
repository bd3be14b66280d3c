package shadow

import (
	"context"
	"log/slog"
)

// RequestKind is the closed set of sync-request variants (spec.md §3).
type RequestKind int

// Recognized request kinds.
const (
	KindLocalUpdate RequestKind = iota
	KindLocalDelete
	KindCloudUpdate
	KindCloudDelete
	KindFullSync
	KindMergedFullSync
	KindOverwriteCloud
	KindOverwriteLocal
)

func (k RequestKind) String() string {
	switch k {
	case KindLocalUpdate:
		return "LocalUpdate"
	case KindLocalDelete:
		return "LocalDelete"
	case KindCloudUpdate:
		return "CloudUpdate"
	case KindCloudDelete:
		return "CloudDelete"
	case KindFullSync:
		return "FullSync"
	case KindMergedFullSync:
		return "MergedFullSync"
	case KindOverwriteCloud:
		return "OverwriteCloud"
	case KindOverwriteLocal:
		return "OverwriteLocal"
	default:
		return "Unknown"
	}
}

// isLocalSided reports whether k's side of origin is the local device
// (used by the merger's same-sidedness check for MergedFullSync reduction,
// spec.md §4.3.6).
func (k RequestKind) isLocalSided() bool {
	return k == KindLocalUpdate || k == KindLocalDelete
}

func (k RequestKind) isCloudSided() bool {
	return k == KindCloudUpdate || k == KindCloudDelete
}

// SyncRequest is the tagged-variant interface implemented by every request
// kind (spec.md §3, §9 "polymorphism over many request types" reframed as
// a closed variant set rather than virtual dispatch). The Merger pattern-
// matches on concrete types via the Kind() tag and type switches, not
// through SyncRequest method overrides.
type SyncRequest interface {
	Kind() RequestKind
	Key() ShadowKey
	// IsUpdateNecessary returns false iff the intended effect is already
	// reflected in the latest synced state. May opportunistically update
	// sync info (spec.md §4.3).
	IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error)
	// Execute runs the reconciliation under the per-shadow write lock.
	Execute(ctx context.Context, rc *RequestContext) error
}

// RequestContext bundles the collaborators a SyncRequest needs to execute,
// breaking the cyclic ownership spec.md §9 warns against: requests and
// strategies receive this value object and never reach back into the Sync
// Handler facade.
type RequestContext struct {
	Store   Store
	Cloud   CloudClient
	Local   LocalHandler
	Locks   *LockTable
	Clock   Clock
	Logger  *slog.Logger
}

// withLock runs fn while holding the per-shadow write lock for key,
// serializing sync execution against concurrent IPC writes (spec.md §4.3,
// §5).
func withLock(rc *RequestContext, key ShadowKey, fn func() error) error {
	handle := rc.Locks.Acquire(key)
	defer handle.Release()

	return fn()
}

// LocalUpdateRequest applies a cloud-originated update to local storage
// (spec.md §4.3.1). Payload carries the cloud update's JSON body, with its
// "version" field interpreted as the producing cloud version.
type LocalUpdateRequest struct {
	KeyV    ShadowKey
	Payload []byte
}

func (r *LocalUpdateRequest) Kind() RequestKind { return KindLocalUpdate }
func (r *LocalUpdateRequest) Key() ShadowKey    { return r.KeyV }

// LocalDeleteRequest applies a cloud-originated delete to local storage
// (spec.md §4.3.2).
type LocalDeleteRequest struct {
	KeyV                ShadowKey
	DeletedCloudVersion int64
}

func (r *LocalDeleteRequest) Kind() RequestKind { return KindLocalDelete }
func (r *LocalDeleteRequest) Key() ShadowKey    { return r.KeyV }

// CloudUpdateRequest pushes a local mutation to the cloud shadow service
// (spec.md §4.3.3). Payload is the update document as a value so multiple
// requests can be JSON-merged without round-tripping.
type CloudUpdateRequest struct {
	KeyV    ShadowKey
	Payload []byte
}

func (r *CloudUpdateRequest) Kind() RequestKind { return KindCloudUpdate }
func (r *CloudUpdateRequest) Key() ShadowKey    { return r.KeyV }

// CloudDeleteRequest pushes a local delete to the cloud shadow service
// (spec.md §4.3.4).
type CloudDeleteRequest struct {
	KeyV ShadowKey
}

func (r *CloudDeleteRequest) Kind() RequestKind { return KindCloudDelete }
func (r *CloudDeleteRequest) Key() ShadowKey    { return r.KeyV }

// FullSyncRequest runs the full reconciliation algorithm, reading both
// sides and writing whichever side(s) lag (spec.md §4.3.5).
type FullSyncRequest struct {
	KeyV ShadowKey
}

func (r *FullSyncRequest) Kind() RequestKind { return KindFullSync }
func (r *FullSyncRequest) Key() ShadowKey    { return r.KeyV }

// MergedFullSyncRequest keeps a flat list of the constituent requests that
// collapsed into it; execution may downgrade to a single same-sided
// request or fall through to a full FullSyncRequest (spec.md §4.3.6).
type MergedFullSyncRequest struct {
	KeyV         ShadowKey
	Constituents []SyncRequest
}

func (r *MergedFullSyncRequest) Kind() RequestKind { return KindMergedFullSync }
func (r *MergedFullSyncRequest) Key() ShadowKey    { return r.KeyV }

// OverwriteCloudRequest force-pushes local state to the cloud, deleting
// the cloud shadow if local is absent (spec.md §4.3.7).
type OverwriteCloudRequest struct {
	KeyV ShadowKey
}

func (r *OverwriteCloudRequest) Kind() RequestKind { return KindOverwriteCloud }
func (r *OverwriteCloudRequest) Key() ShadowKey    { return r.KeyV }

// OverwriteLocalRequest force-pushes cloud state to local, deleting the
// local shadow if cloud is absent (spec.md §4.3.7).
type OverwriteLocalRequest struct {
	KeyV ShadowKey
}

func (r *OverwriteLocalRequest) Kind() RequestKind { return KindOverwriteLocal }
func (r *OverwriteLocalRequest) Key() ShadowKey    { return r.KeyV }
