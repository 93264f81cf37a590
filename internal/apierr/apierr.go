// Package apierr holds the typed error taxonomy for REST calls against
// exchange APIs. Adapters raise these; the facade layer absorbs them.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure.
type Kind int

const (
	// KindRequest covers transport failures and unclassified statuses.
	KindRequest Kind = iota
	// KindParameter marks a malformed or rejected request (wire status 400).
	KindParameter
	// KindUnauthorized marks missing or bad credentials (wire status 401).
	KindUnauthorized
	// KindNotFound marks an unknown resource (wire status 404).
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	default:
		return "request"
	}
}

// Error carries the failure kind plus the operation and URL it occurred on.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s (%s): %v", e.Kind, e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s error in %s (%s)", e.Kind, e.Op, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// Parameter builds a KindParameter error.
func Parameter(op, url string) *Error {
	return &Error{Kind: KindParameter, Op: op, URL: url}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(op, url string) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, URL: url}
}

// NotFound builds a KindNotFound error.
func NotFound(op, url string) *Error {
	return &Error{Kind: KindNotFound, Op: op, URL: url}
}

// Request wraps a transport level failure.
func Request(op, url string, err error) *Error {
	return &Error{Kind: KindRequest, Op: op, URL: url, Err: err}
}

// FromStatus maps a non-2xx wire status onto the taxonomy. 2xx statuses
// return nil.
func FromStatus(status int, op, url string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		return Parameter(op, url)
	case status == http.StatusUnauthorized:
		return Unauthorized(op, url)
	case status == http.StatusNotFound:
		return NotFound(op, url)
	default:
		return Request(op, url, fmt.Errorf("unexpected status %d", status))
	}
}

// KindOf extracts the failure kind from any error produced by this package.
// Unknown errors report KindRequest.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindRequest
}

// IsParameter reports whether err is a KindParameter failure.
func IsParameter(err error) bool { return KindOf(err) == KindParameter }

// IsUnauthorized reports whether err is a KindUnauthorized failure.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsNotFound reports whether err is a KindNotFound failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
