// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput is returned when a request is rejected before any I/O takes place.
type ErrInvalidInput struct {
	Field  string
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrRateLimited is returned when GitHub reports that the request quota is exhausted.
type ErrRateLimited struct {
	ResetAt time.Time
	Limit   int
}

func (e *ErrRateLimited) Error() string {
	if e.ResetAt.IsZero() {
		return "github api rate limit exceeded"
	}
	return fmt.Sprintf("github api rate limit exceeded, resets at %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// RetryAfter returns how long a caller should wait before searching again.
func (e *ErrRateLimited) RetryAfter(now time.Time) time.Duration {
	if e.ResetAt.IsZero() || !e.ResetAt.After(now) {
		return 0
	}
	return e.ResetAt.Sub(now)
}

// ErrInvalidQuery is returned when GitHub rejects a search query as malformed or too complex.
type ErrInvalidQuery struct {
	Query   string
	Message string
}

func (e *ErrInvalidQuery) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search query %q is invalid or too complex", e.Query)
	}
	return fmt.Sprintf("search query %q is invalid or too complex: %s", e.Query, e.Message)
}

// ErrTimeout is returned when GitHub does not answer within the configured deadline.
type ErrTimeout struct {
	After time.Duration
	Err   error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("github api request timed out after %s", e.After)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

// ErrNetworkFailure is returned when a connection to GitHub could not be established.
type ErrNetworkFailure struct {
	Err error
}

func (e *ErrNetworkFailure) Error() string {
	return fmt.Sprintf("failed to connect to github api: %v", e.Err)
}

func (e *ErrNetworkFailure) Unwrap() error { return e.Err }

// ErrProvider is returned for any other non-2xx response from GitHub.
type ErrProvider struct {
	StatusCode int
	Message    string
}

func (e *ErrProvider) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("github api error (%d): %s", e.StatusCode, msg)
}

// ErrStoreUnavailable is returned when the persistence layer cannot serve a request.
type ErrStoreUnavailable struct {
	Op  string
	Err error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error { return e.Err }

// ErrNotFound is returned when a delete targets a record that does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with id %s", e.Resource, e.ID)
}

// IsRemoteUnavailable reports whether err means GitHub could not serve the search:
// rate limiting, timeouts, network failures and provider errors.
func IsRemoteUnavailable(err error) bool {
	var (
		rateLimited *ErrRateLimited
		timeout     *ErrTimeout
		network     *ErrNetworkFailure
		provider    *ErrProvider
	)
	return errors.As(err, &rateLimited) ||
		errors.As(err, &timeout) ||
		errors.As(err, &network) ||
		errors.As(err, &provider)
}

// InvalidInput is a shorthand constructor used by validation code.
func InvalidInput(field, reason string) error {
	return &ErrInvalidInput{Field: field, Reason: reason}
}

// NotFound is a shorthand constructor for a missing record.
func NotFound(resource string, id any) error {
	return &ErrNotFound{Resource: resource, ID: fmt.Sprint(id)}
}

// StoreUnavailable wraps a storage failure, keeping already classified errors intact.
func StoreUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var invalid *ErrInvalidInput
	if errors.As(err, &invalid) {
		return err
	}
	var unavailable *ErrStoreUnavailable
	if errors.As(err, &unavailable) {
		return err
	}
	return &ErrStoreUnavailable{Op: op, Err: err}
}
