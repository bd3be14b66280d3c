// Package shadow implements the edge shadow synchronization engine: the
// request queue with coalescing, the per-shadow sync state machine, the
// cloud/local reconciliation protocol, request merging, retry/backoff,
// rate limiting, and connectivity-driven lifecycle (spec.md §1-§5).
package shadow

import (
	"context"
	"fmt"
	"time"
)

// ShadowKey identifies one (thingName, shadowName) pair. ShadowName is ""
// for the classic shadow (spec.md §3 Glossary).
type ShadowKey struct {
	ThingName  string
	ShadowName string
}

func (k ShadowKey) String() string {
	if k.ShadowName == "" {
		return k.ThingName
	}

	return fmt.Sprintf("%s/%s", k.ThingName, k.ShadowName)
}

// ShadowDocument is the versioned JSON state document attached to a thing
// (spec.md §3).
type ShadowDocument struct {
	ThingName  string
	ShadowName string
	State      []byte // JSON {desired, reported, delta}
	Metadata   []byte // JSON timestamp tree
	Version    int64
	Timestamp  int64 // epoch seconds
}

// SyncInformation is the per-shadow reconciliation metadata (spec.md §3).
type SyncInformation struct {
	ThingName          string
	ShadowName         string
	LastSyncedDocument []byte // nullable
	CloudVersion       int64
	LocalVersion       int64
	CloudUpdateTime    int64
	LastSyncTime       int64
	CloudDeleted       bool
}

// Key returns the (thingName, shadowName) identity of s.
func (s *SyncInformation) Key() ShadowKey {
	return ShadowKey{ThingName: s.ThingName, ShadowName: s.ShadowName}
}

// Direction is the configured policy controlling which side of a sync is
// allowed to propagate (spec.md §4.8).
type Direction int

// Recognized direction values.
const (
	DirectionBetweenDeviceAndCloud Direction = iota
	DirectionDeviceToCloud
	DirectionCloudToDevice
)

func (d Direction) String() string {
	switch d {
	case DirectionDeviceToCloud:
		return "deviceToCloud"
	case DirectionCloudToDevice:
		return "cloudToDevice"
	default:
		return "betweenDeviceAndCloud"
	}
}

// AllowsLocal reports whether d permits cloud-inbound requests (LocalUpdate,
// LocalDelete) to be enqueued.
func (d Direction) AllowsLocal() bool { return d != DirectionDeviceToCloud }

// AllowsCloud reports whether d permits device-outbound requests
// (CloudUpdate, CloudDelete) to be enqueued.
func (d Direction) AllowsCloud() bool { return d != DirectionCloudToDevice }

// Clock abstracts wall-clock time so the periodic strategy's ticker and the
// sync requests' timestamps can be driven deterministically in tests
// (spec.md §9 "time-driven testing"). The Retryer's backoff and the rate
// limiter's token buckets run on real time and do not use Clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	NewTicker(d time.Duration) Ticker
}

// Ticker abstracts time.Ticker for injection.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Store is the DAO interface for shadow documents and sync metadata
// (spec.md §6). Implemented by internal/shadowstore against SQLite.
type Store interface {
	GetShadowThing(ctx context.Context, key ShadowKey) (*ShadowDocument, error)
	UpdateShadowThing(ctx context.Context, key ShadowKey, payload []byte, version int64) (*ShadowDocument, error)
	DeleteShadowThing(ctx context.Context, key ShadowKey) (*ShadowDocument, error)
	GetDeletedShadowVersion(ctx context.Context, key ShadowKey) (int64, bool, error)
	GetShadowSyncInformation(ctx context.Context, key ShadowKey) (*SyncInformation, error)
	UpdateSyncInformation(ctx context.Context, info *SyncInformation) error
	InsertSyncInfoIfNotExists(ctx context.Context, info *SyncInformation) (bool, error)
	DeleteSyncInformation(ctx context.Context, key ShadowKey) error
	ListSyncedShadows(ctx context.Context) ([]ShadowKey, error)
	ListNamedShadowsForThing(ctx context.Context, thingName string, offset, limit int) ([]string, error)
}

// CloudError classifies a cloud-service failure. Sentinel causes (see
// internal/cloudshadow) are compared with errors.Is against Err.
type CloudError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *CloudError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("cloud: HTTP %d (request-id %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("cloud: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *CloudError) Unwrap() error { return e.Err }

// CloudClient performs Get/Update/Delete against the remote shadow service
// (spec.md §6). ResourceNotFound is surfaced as a nil document with a nil
// error (Get) so callers don't need errors.Is on the hot path; Update and
// Delete surface typed *CloudError failures.
type CloudClient interface {
	GetThingShadow(ctx context.Context, key ShadowKey) (*ShadowDocument, error) // nil, nil if absent
	UpdateThingShadow(ctx context.Context, key ShadowKey, payload []byte) (*ShadowDocument, error)
	DeleteThingShadow(ctx context.Context, key ShadowKey) error
}

// LocalUpdateResult is returned by LocalHandler.Update.
type LocalUpdateResult struct {
	Version        int64
	CurrentDocument []byte
}

// LocalHandler performs local shadow mutations on behalf of sync requests
// inbound from the cloud (LocalUpdateSyncRequest/LocalDeleteSyncRequest).
// It is distinct from Store: Store is the raw DAO, while the daemon wiring
// uses StoreLocalHandler, which writes through Store with the same
// version increment that internal/ipc.Handler applies to device-originated
// writes. It does not call internal/ipc.Handler.
type LocalHandler interface {
	Update(ctx context.Context, key ShadowKey, payload []byte) (*LocalUpdateResult, error)
	Delete(ctx context.Context, key ShadowKey) error
}
