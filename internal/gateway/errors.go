// Package gateway implements the typed HTTP transport client shared by the
// store-scoped and platform-scoped API surfaces. It knows how to build and
// execute requests, attach bearer credentials, and normalize errors; it has no
// knowledge of business types.
package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a gateway failure for retry decisions.
type ErrorKind string

const (
	// KindClient marks deterministic 4xx failures (except 429). Never retried.
	KindClient ErrorKind = "client"
	// KindTransient marks 429, 5xx and network failures. Retryable.
	KindTransient ErrorKind = "transient"
	// KindUnauthorized marks 401 responses. Triggers global session teardown.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindParse marks a malformed body on an otherwise successful response.
	KindParse ErrorKind = "parse"
)

// Error is the normalized failure returned by the transport client.
// Status is zero for network failures that produced no HTTP response.
type Error struct {
	Status  int
	Kind    ErrorKind
	Message string
	Body    []byte // Raw response body, kept for callers that need detail
	cause   error
}

// errorPayload is the server's terminal error shape: {message, error?, status}.
type errorPayload struct {
	Message string `json:"message"`
	Err     any    `json:"error,omitempty"`
	Status  int    `json:"status"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("gateway: %s", e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether retrying the request could possibly succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// AsError extracts a *Error from err via errors.As.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsRetryable reports whether err is a retryable gateway failure.
func IsRetryable(err error) bool {
	if ge, ok := AsError(err); ok {
		return ge.Retryable()
	}
	return false
}

// IsUnauthorized reports whether err is a 401 gateway failure.
func IsUnauthorized(err error) bool {
	if ge, ok := AsError(err); ok {
		return ge.Kind == KindUnauthorized
	}
	return false
}

// kindForStatus maps an HTTP status code to an error kind.
// 429 is rate limiting and therefore transient, unlike the rest of the 4xx range.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 429:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindClient
	}
}

// genericMessage derives a fallback message when the server provided none.
func genericMessage(status int) string {
	switch {
	case status == 401:
		return "authentication required"
	case status == 403:
		return "access denied"
	case status == 404:
		return "resource not found"
	case status == 429:
		return "too many requests"
	case status >= 500:
		return "server error"
	default:
		return fmt.Sprintf("request failed with status %d", status)
	}
}
