package chat

import (
	"context"
	"time"

	domchat "github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/session"
)

// Provider opens streaming completions.
type Provider interface {
	Stream(ctx context.Context, req domchat.Request) (domchat.Stream, error)
}

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	Add(ctx context.Context, at time.Time, tokens int64) error
	Load(ctx context.Context, at time.Time) (daily, monthly int64, err error)
}

// SessionRepository loads and stores tutor sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
}

// ImageFetcher reads question images by site path.
type ImageFetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}
