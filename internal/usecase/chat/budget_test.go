package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
)

func TestBudgetTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())

	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected domain.ErrQuotaExceeded, got %v", err)
	}
}

func TestBudgetTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewBudgetTracker("test", 100, 0, BudgetActionWarn, zap.NewNop())

	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for warn action, got %v", err)
	}
}

func TestBudgetTracker_MonthlyReject(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 500, BudgetActionReject, zap.NewNop())

	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected domain.ErrQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestBudgetTracker_UnlimitedWhenZero(t *testing.T) {
	bt := NewBudgetTracker("test", 0, 0, BudgetActionReject, zap.NewNop())

	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil error for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("expected -1 for unlimited, got %d/%d", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestBudgetTracker_Remaining(t *testing.T) {
	bt := NewBudgetTracker("test", 1000, 10000, BudgetActionWarn, zap.NewNop())

	bt.Record(300)

	if daily := bt.RemainingDaily(); daily != 700 {
		t.Errorf("expected daily remaining 700, got %d", daily)
	}
	if monthly := bt.RemainingMonthly(); monthly != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", monthly)
	}

	bt.Record(5000)
	if daily := bt.RemainingDaily(); daily != 0 {
		t.Errorf("remaining must not go negative, got %d", daily)
	}
}

func TestBudgetTracker_DayRollover(t *testing.T) {
	now := time.Date(2026, 5, 31, 23, 0, 0, 0, time.UTC)
	bt := NewBudgetTracker("test", 100, 1000, BudgetActionReject, zap.NewNop()).
		WithClock(func() time.Time { return now })

	bt.Record(100)
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	now = now.Add(2 * time.Hour) // June 1st: both periods roll over
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected reset after midnight, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected counters reset, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

// --- Mock BudgetStore ---

type mockBudgetStore struct {
	mu      sync.Mutex
	daily   int64
	monthly int64
	added   []int64
	loadErr error
	addErr  error
}

func (m *mockBudgetStore) Add(_ context.Context, _ time.Time, tokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.daily += tokens
	m.monthly += tokens
	m.added = append(m.added, tokens)
	return nil
}

func (m *mockBudgetStore) Load(_ context.Context, _ time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return 0, 0, m.loadErr
	}
	return m.daily, m.monthly, nil
}

func TestBudgetTracker_WithStore_LoadsValues(t *testing.T) {
	store := &mockBudgetStore{daily: 300, monthly: 5000}

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("expected monthly_used=5000, got %d", bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_PersistsToStore(t *testing.T) {
	store := &mockBudgetStore{}
	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionWarn, zap.NewNop()).
		WithStore(context.Background(), store)

	bt.Record(100)
	bt.Record(200)
	bt.Record(0)

	if bt.DailyUsed() != 300 {
		t.Errorf("expected daily_used=300, got %d", bt.DailyUsed())
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.added) != 2 || store.daily != 300 {
		t.Errorf("unexpected store writes: %v", store.added)
	}
}

func TestBudgetTracker_WithStore_LoadError(t *testing.T) {
	store := &mockBudgetStore{loadErr: errors.New("connection refused")}

	bt := NewBudgetTracker("prov", 1000, 10000, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("expected zero usage on load error, got %d/%d", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestBudgetTracker_Record_StoreWriteError(t *testing.T) {
	store := &mockBudgetStore{addErr: errors.New("write timeout")}
	bt := NewBudgetTracker("prov", 100, 0, BudgetActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	bt.Record(100)

	if bt.DailyUsed() != 100 {
		t.Errorf("expected daily_used=100 even with store error, got %d", bt.DailyUsed())
	}
	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}
