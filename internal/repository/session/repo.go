package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paperfinder/paperfinder/internal/db"
	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/session"
)

var keyPrefix = domain.KeyPrefix + "session:"

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo stores sessions as JSON documents with a sliding TTL.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a session repository.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Get loads a session. Missing or expired sessions return domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (session.Session, error) {
	data, err := r.store.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return session.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return session.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var dto sessionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return session.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if dto.Version != schemaVersion {
		return session.Session{}, fmt.Errorf("session %s has schema %d: %w", id, dto.Version, domain.ErrNotFound)
	}
	return fromDTO(dto), nil
}

// Save writes a session and refreshes its TTL.
func (r *Repo) Save(ctx context.Context, s session.Session) error {
	data, err := json.Marshal(toDTO(s))
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID(), err)
	}
	if err := r.store.SetWithTTL(ctx, key(s.ID()), data, r.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID(), err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, key(id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func key(id string) string { return keyPrefix + id }
