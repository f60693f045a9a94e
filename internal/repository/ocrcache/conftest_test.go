package ocrcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/db"
	"github.com/paperfinder/paperfinder/internal/domain"
)

type mockRecognizer struct {
	text  string
	err   error
	calls int
}

func (m *mockRecognizer) Recognize(_ context.Context, _ domain.Image) (string, error) {
	m.calls++
	return m.text, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.lastTTL = ttl
	return m.Set(ctx, key, value)
}

func newTestRecognizer(t *testing.T, inner *mockRecognizer, ttl time.Duration) (*CachedRecognizer, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: make(map[string][]byte)}
	return New(inner, ms, ttl, nil, zap.NewNop()), ms
}
