package spotify

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnauthorized = errors.New("spotify: invalid client credentials")
	ErrForbidden    = errors.New("spotify: access forbidden")
	ErrNotFound     = errors.New("spotify: resource not found")
	ErrRateLimited  = errors.New("spotify: rate limited")
	ErrUpstream     = errors.New("spotify: upstream error (5xx)")
	ErrBadResponse  = errors.New("spotify: invalid response format or malformed data")
	ErrUnavailable  = errors.New("spotify: host unreachable or transport failure")
	ErrTimeout      = errors.New("spotify: request timed out")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel   error
	Operation  string
	Status     int
	Body       string
	RetryAfter time.Duration // populated on rate-limit responses
	Err        error         // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("spotify: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// sentinelForStatus maps an HTTP status code to the matching sentinel.
func sentinelForStatus(status int) error {
	switch {
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrUpstream
	default:
		return ErrBadResponse
	}
}
