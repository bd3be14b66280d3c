// Package ipc implements the four operations external callers use to read
// and mutate shadows (spec.md §6 "IPC handler interfaces exposed to
// callers"), translating the sync engine's classified errors into the
// user-visible error shapes of spec.md §7.
package ipc

import "fmt"

// ServiceError is a generic service-level failure with an HTTP-like code,
// covering the "Too Many Requests" and "Resource Not Found" cases from
// spec.md §7.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ipc: %s (%d)", e.Message, e.Code)
}

// ConflictError indicates a caller-supplied version did not match the
// shadow's current version (spec.md §7 "ConflictError{code:409}").
type ConflictError struct {
	Code           int
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ipc: version conflict, current version is %d", e.CurrentVersion)
}

// InvalidArgumentsError indicates a request failed validation (payload
// too large, malformed token) and was never enqueued (spec.md §7).
type InvalidArgumentsError struct {
	Message string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("ipc: invalid arguments: %s", e.Message)
}

func newThrottledError() *ServiceError {
	return &ServiceError{Code: 429, Message: "Too Many Requests"}
}

func newNotFoundError() *ServiceError {
	return &ServiceError{Code: 404, Message: "Resource Not Found"}
}
