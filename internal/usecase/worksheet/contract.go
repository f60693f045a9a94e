package worksheet

import (
	"context"

	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
)

// ImageFetcher reads question and answer images by site path.
type ImageFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// SessionReader loads the session whose selection is exported.
type SessionReader interface {
	Get(ctx context.Context, id string) (domsession.Session, error)
}
