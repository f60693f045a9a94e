package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paperfinder/paperfinder/internal/db/memory"
)

func TestStore_AddAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	s := New(mem, "openai", 48*time.Hour, 62*24*time.Hour)

	day1 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	if err := s.Add(ctx, day1, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, day2, 50); err != nil {
		t.Fatal(err)
	}

	daily, monthly, err := s.Load(ctx, day2)
	if err != nil {
		t.Fatal(err)
	}
	if daily != 50 || monthly != 150 {
		t.Errorf("got daily %d monthly %d, want 50 and 150", daily, monthly)
	}

	raw, err := mem.Get(ctx, "paperfinder:budget:openai:daily:2026-03-14")
	if err != nil || string(raw) != "100" {
		t.Errorf("daily key = %q, %v", raw, err)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := New(memory.NewStore(), "openai", time.Hour, time.Hour)
	daily, monthly, err := s.Load(context.Background(), time.Now())
	if err != nil || daily != 0 || monthly != 0 {
		t.Errorf("got %d/%d, %v", daily, monthly, err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) IncrBy(context.Context, string, int64) error { return f.err }
func (f failingStore) Expire(context.Context, string, time.Duration, bool) error { return f.err }

func TestStore_Errors(t *testing.T) {
	boom := errors.New("boom")
	s := New(failingStore{err: boom}, "openai", time.Hour, time.Hour)
	if err := s.Add(context.Background(), time.Now(), 1); !errors.Is(err, boom) {
		t.Errorf("Add: %v", err)
	}
	if _, _, err := s.Load(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Errorf("Load: %v", err)
	}
}
