package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource (session, asset).
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed request value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyQuery signals a blank search query. No upstream call is made.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNotConfigured signals a missing API key, host or relay setting.
	ErrNotConfigured = errors.New("not configured")
	// ErrUpstream signals a failure of an external service.
	ErrUpstream = errors.New("upstream error")
	// ErrQuotaExceeded signals an exhausted chat token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
)

// UpstreamError wraps ErrUpstream with the failing service and its HTTP status.
type UpstreamError struct {
	Service string
	Status  int
	Detail  string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s returned %d: %s", ErrUpstream.Error(), e.Service, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s returned %d", ErrUpstream.Error(), e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// NewUpstreamError creates an upstream error for a non-2xx response.
func NewUpstreamError(service string, status int, detail string) error {
	return &UpstreamError{Service: service, Status: status, Detail: detail}
}
