package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/paperfinder/paperfinder/internal/db"
	"github.com/paperfinder/paperfinder/internal/domain"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists per-provider token counters (INCRBY + GET with TTL).
type Store struct {
	store    store
	provider string
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store for one provider.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, provider string, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		provider: provider,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// Add records tokens against the day and month of at.
func (s *Store) Add(ctx context.Context, at time.Time, tokens int64) error {
	if err := s.incr(ctx, s.dailyKey(at), tokens, s.dailyTTL); err != nil {
		return err
	}
	return s.incr(ctx, s.monthlyKey(at), tokens, s.monthTTL)
}

// Load returns the tokens spent in the day and month of at. Missing keys read as zero.
func (s *Store) Load(ctx context.Context, at time.Time) (daily, monthly int64, err error) {
	if daily, err = s.get(ctx, s.dailyKey(at)); err != nil {
		return 0, 0, err
	}
	if monthly, err = s.get(ctx, s.monthlyKey(at)); err != nil {
		return 0, 0, err
	}
	return daily, monthly, nil
}

func (s *Store) incr(ctx context.Context, key string, val int64, ttl time.Duration) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}
	// NX: the TTL is set once per period and not pushed back on every write.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, s.provider, t.UTC().Format("2006-01-02"))
}

func (s *Store) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, s.provider, t.UTC().Format("2006-01"))
}
