// Package cloudshadow implements shadow.CloudClient over HTTP against a
// remote shadow service, in the shape of the teacher's graph.Client: bearer
// auth, exponential-backoff retry on transient transport failures, and
// typed error classification (spec.md §4.11).
package cloudshadow

import (
	"errors"
	"net/http"
)

// Sentinel errors for HTTP status classification. Compare with
// errors.Is(err, cloudshadow.ErrThrottled) etc.
var (
	ErrBadRequest       = errors.New("cloudshadow: bad request")
	ErrUnauthorized     = errors.New("cloudshadow: unauthorized")
	ErrForbidden        = errors.New("cloudshadow: forbidden")
	ErrNotFound         = errors.New("cloudshadow: not found")
	ErrConflict         = errors.New("cloudshadow: conflict")
	ErrThrottled        = errors.New("cloudshadow: throttled")
	ErrPayloadTooLarge  = errors.New("cloudshadow: payload too large")
	ErrServiceUnavailable = errors.New("cloudshadow: service unavailable")
	ErrServerError      = errors.New("cloudshadow: server error")
)

// classifyStatus maps an HTTP status code to a sentinel error. Returns nil
// for codes below 500 that have no sentinel (including 2xx). 404 maps to
// ErrNotFound; callers treat it specially as "absent".
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailable
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether a transport-level retry (distinct from the
// shadow package's request-level Retryer) should be attempted for code.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
