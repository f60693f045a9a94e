package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStore struct {
	err error
}

func (m *mockStore) Ping(_ context.Context) error { return m.err }

type mockProvider struct {
	err error
}

func (m *mockProvider) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStore{}, map[string]ProviderChecker{"ocr": &mockProvider{}, "chat": &mockProvider{}})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"store", "ocr", "chat"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(&mockStore{err: errors.New("conn refused")}, map[string]ProviderChecker{"ocr": &mockProvider{}})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["store"] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks["store"])
	}
	if r.Checks["ocr"] != CheckOK {
		t.Errorf("expected ocr %q, got %q", CheckOK, r.Checks["ocr"])
	}
}

func TestCheck_ProviderError(t *testing.T) {
	svc := New(&mockStore{}, map[string]ProviderChecker{"chat": &mockProvider{err: errors.New("timeout")}})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["chat"] != CheckError {
		t.Errorf("expected chat %q, got %q", CheckError, r.Checks["chat"])
	}
}

func TestCheck_StoreErrorWinsOverProvider(t *testing.T) {
	svc := New(
		&mockStore{err: errors.New("db down")},
		map[string]ProviderChecker{"ocr": &mockProvider{err: errors.New("ocr down")}},
	)
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NilProvidersSkipped(t *testing.T) {
	svc := New(&mockStore{}, map[string]ProviderChecker{"ocr": nil})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["ocr"]; ok {
		t.Error("ocr check should be absent when its checker is nil")
	}
}
