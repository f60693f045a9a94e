package search

import (
	"context"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/request"
)

// Index answers similarity queries against one vector index.
type Index interface {
	Matches(ctx context.Context, q request.Query) ([]match.Match, error)
}

// Recognizer extracts text from an uploaded image.
type Recognizer interface {
	Recognize(ctx context.Context, img domain.Image) (string, error)
}
