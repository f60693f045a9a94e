package paperfinder

import "github.com/paperfinder/paperfinder/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrInvalidInput  = domain.ErrInvalidInput
	ErrEmptyQuery    = domain.ErrEmptyQuery
	ErrNotConfigured = domain.ErrNotConfigured
	ErrUpstream      = domain.ErrUpstream
)
