package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is returned when the backend could not be reached at all
	ErrNetwork = errors.New("upstream network error")

	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("upstream resource not found")

	// ErrRejected is returned when the backend refused the request (4xx)
	ErrRejected = errors.New("upstream rejected request")

	// ErrUnauthorized is returned for 401/403 responses
	ErrUnauthorized = errors.New("upstream unauthorized")

	// ErrUnavailable is returned for 5xx responses
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrInvalidConfig is returned by NewClient
	ErrInvalidConfig = errors.New("invalid upstream config")
)

// APIError carries the backend's own message next to the sentinel it maps to.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s %s (%d): %s", e.Err, "request", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: %s %s (%d)", e.Err, "request", e.Path, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// MessageOf returns the message the backend attached to err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}
