package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	"github.com/paperfinder/paperfinder/internal/domain/search/request"
	"github.com/paperfinder/paperfinder/internal/logger"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

// Result is the outcome of a search. Query is the text that was searched,
// which for image searches is the OCR output.
type Result struct {
	Query   string
	Matches []match.Match
}

// Service dispatches queries to the configured vector index.
// Failures never surface to the caller: they collapse into the sentinel match.
type Service struct {
	indexes map[filter.Backend]Index
	ocr     Recognizer
	logger  *zap.Logger
}

// New creates a search service. secondary and ocr can be nil.
func New(primary, secondary Index, ocr Recognizer, logger *zap.Logger) *Service {
	indexes := map[filter.Backend]Index{}
	if primary != nil {
		indexes[filter.BackendPrimary] = primary
	}
	if secondary != nil {
		indexes[filter.BackendSecondary] = secondary
	}
	return &Service{indexes: indexes, ocr: ocr, logger: logger}
}

// HasBackend reports whether b is configured.
func (s *Service) HasBackend(b filter.Backend) bool {
	_, ok := s.indexes[b]
	return ok
}

// Search runs a text query. A blank query returns domain.ErrEmptyQuery
// without any upstream call; every other failure yields the sentinel match.
func (s *Service) Search(ctx context.Context, text string, f filter.Filters) (Result, error) {
	q, err := request.New(text, f)
	if err != nil {
		return Result{}, err //nolint:wrapcheck // domain validation error
	}
	return Result{Query: q.Text(), Matches: s.dispatch(ctx, q)}, nil
}

// SearchImage recognizes the image and searches with the extracted text.
// OCR failures yield the sentinel match.
func (s *Service) SearchImage(ctx context.Context, img domain.Image, f filter.Filters) Result {
	text, err := s.Recognize(ctx, img)
	if err != nil {
		s.fail(ctx, "ocr", err)
		return Result{Matches: match.Failed()}
	}
	q, err := request.New(text, f)
	if err != nil {
		// Recognizers return the no-text placeholder instead of blank text,
		// so this is only reached on oversized output.
		s.fail(ctx, "query", err)
		return Result{Query: text, Matches: match.Failed()}
	}
	return Result{Query: q.Text(), Matches: s.dispatch(ctx, q)}
}

// Recognize runs OCR only.
func (s *Service) Recognize(ctx context.Context, img domain.Image) (string, error) {
	if s.ocr == nil {
		return "", fmt.Errorf("ocr: %w", domain.ErrNotConfigured)
	}
	text, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}
	if text == "" {
		text = match.NoTextFound
	}
	return text, nil
}

func (s *Service) dispatch(ctx context.Context, q request.Query) []match.Match {
	idx, ok := s.indexes[q.Filters().Backend()]
	if !ok {
		s.fail(ctx, "backend", fmt.Errorf("search backend %s: %w", q.Filters().Backend(), domain.ErrNotConfigured))
		return match.Failed()
	}
	matches, err := idx.Matches(ctx, q)
	if err != nil {
		s.fail(ctx, "search", err)
		return match.Failed()
	}
	return matches
}

func (s *Service) fail(ctx context.Context, stage string, err error) {
	reason := "upstream"
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		reason = "not_configured"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "canceled"
	}
	metrics.SearchFallbacksTotal.WithLabelValues(reason).Inc()
	logger.FromContextOr(ctx, s.logger).Error("Search failed, returning error match",
		zap.String("stage", stage),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
