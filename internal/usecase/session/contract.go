package session

import (
	"context"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	"github.com/paperfinder/paperfinder/internal/usecase/search"
)

// Repository persists sessions.
type Repository interface {
	Get(ctx context.Context, id string) (domsession.Session, error)
	Save(ctx context.Context, s domsession.Session) error
	Delete(ctx context.Context, id string) error
}

// Searcher runs searches on behalf of a session.
type Searcher interface {
	Search(ctx context.Context, text string, f filter.Filters) (search.Result, error)
	SearchImage(ctx context.Context, img domain.Image, f filter.Filters) search.Result
	HasBackend(b filter.Backend) bool
}
