package shadow

import (
	"errors"
	"fmt"
)

// Tag classifies a sync-request failure per spec.md §7's error taxonomy.
// The strategy loop pattern-matches on the tag rather than on concrete
// error types, per spec.md §9's "exceptions-as-control-flow" reframing.
type Tag int

// Recognized classification tags.
const (
	// TagNone is the zero value; never attached to a returned error.
	TagNone Tag = iota
	// TagRetryable marks a transient cloud or transport failure: retried
	// with backoff by the Retryer.
	TagRetryable
	// TagSkip marks a non-retryable failure specific to this request (bad
	// payload, auth error, other 4xx): logged and dropped.
	TagSkip
	// TagConflict marks a cloud/local version divergence: escalated to a
	// FullSync on the same key.
	TagConflict
	// TagUnknownShadow marks missing sync metadata: escalated to a
	// FullSync on the same key.
	TagUnknownShadow
	// TagInterrupted marks a cooperative stop signal: propagated to the
	// worker, which terminates its loop.
	TagInterrupted
)

func (t Tag) String() string {
	switch t {
	case TagRetryable:
		return "retryable"
	case TagSkip:
		return "skip"
	case TagConflict:
		return "conflict"
	case TagUnknownShadow:
		return "unknown_shadow"
	case TagInterrupted:
		return "interrupted"
	default:
		return "none"
	}
}

// ClassifiedError wraps an underlying cause with a Tag the strategy loop
// reacts to, mirroring the teacher's GraphError shape (status + sentinel +
// message) adapted to the sync-request taxonomy instead of HTTP status
// codes.
type ClassifiedError struct {
	Tag Tag
	Key ShadowKey
	Err error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("shadow: %s %s: %v", e.Key, e.Tag, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify wraps err with tag and key, or returns nil if err is nil.
func Classify(tag Tag, key ShadowKey, err error) error {
	if err == nil {
		return nil
	}

	return &ClassifiedError{Tag: tag, Key: key, Err: err}
}

// TagOf extracts the Tag from err, or TagNone if err does not carry one.
func TagOf(err error) Tag {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Tag
	}

	return TagNone
}

// Sentinel errors for conditions that do not need per-instance context.
var (
	// ErrQueueStopping is returned by Put/Take when the queue has been
	// stopped and is draining (spec.md §4.1 "Cancelled when the queue is
	// stopping").
	ErrQueueStopping = errors.New("shadow: queue is stopping")
	// ErrQueueFull reports a queue at capacity. No Queue method returns it:
	// Put blocks until space frees up.
	ErrQueueFull = errors.New("shadow: queue at capacity")
	// ErrUnknownShadow indicates sync metadata does not exist for a key
	// that a request assumed was under sync (spec.md §4.3.1/§4.3.2).
	ErrUnknownShadow = errors.New("shadow: no sync information for shadow")
	// ErrNoLocalSource indicates a CloudUpdate/CloudDelete ran with no
	// local document to source the cloud write from (spec.md §4.3.3).
	ErrNoLocalSource = errors.New("shadow: no local shadow to sync from")
	// ErrThrottled is returned by rate-limited callers that fail fast
	// rather than block the strategy loop (spec.md §4.7).
	ErrThrottled = errors.New("shadow: request rate exceeded")
	// ErrPayloadTooLarge indicates a shadow document exceeded the
	// configured (or hard-ceiling) size limit (spec.md §3, §8).
	ErrPayloadTooLarge = errors.New("shadow: payload too large")
	// ErrVersionConflict indicates a caller-supplied version did not match
	// the current document version (spec.md §7 "ConflictError{code:409}").
	ErrVersionConflict = errors.New("shadow: version conflict")
	// ErrResourceNotFound indicates no document exists for a get/delete.
	ErrResourceNotFound = errors.New("shadow: resource not found")
)
