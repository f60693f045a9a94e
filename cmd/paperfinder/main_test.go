package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/paperfinder/paperfinder/internal/config"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	chiTransport "github.com/paperfinder/paperfinder/internal/transport/chi"
	"github.com/paperfinder/paperfinder/internal/version"
)

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/search", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body chiTransport.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != chiTransport.CodeInternalError {
		t.Errorf("expected code %q, got %q", chiTransport.CodeInternalError, body.Code)
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.New(core)))
	r.Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 http_request line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", fields["status"])
	}
	if fields["route"] != "/v1/sessions/{id}" {
		t.Errorf("expected route pattern, got %v", fields["route"])
	}
	if fields["session_id"] != "abc" {
		t.Errorf("expected session_id=abc, got %v", fields["session_id"])
	}
}

func TestAssetPrefixes(t *testing.T) {
	got := assetPrefixes(config.AssetsConfig{QuestionsPrefix: "/q"})
	want := label.DefaultAssets()
	want.Questions = "/q"
	if got != want {
		t.Errorf("assetPrefixes = %+v, want %+v", got, want)
	}
}

func TestNewStore(t *testing.T) {
	s, err := newStore(config.DatabaseConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	s.Close()

	if _, err := newStore(config.DatabaseConfig{Driver: "redis"}); err == nil {
		t.Error("expected error for redis without addrs")
	}
	if _, err := newStore(config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestNewRecognizer_Unconfigured(t *testing.T) {
	for _, cfg := range []config.OCRConfig{
		{Provider: "mistral"},
		{Provider: "none"},
	} {
		rec, checker := newRecognizer(cfg)
		if rec != nil || checker != nil {
			t.Errorf("provider %q: expected no recognizer", cfg.Provider)
		}
	}
}

func TestNewRecognizer_Mistral(t *testing.T) {
	rec, checker := newRecognizer(config.OCRConfig{Provider: "mistral", APIKey: "k"})
	if rec == nil || checker == nil {
		t.Fatal("expected a mistral recognizer")
	}
}

func TestPrintLabels(t *testing.T) {
	var buf bytes.Buffer
	if err := printLabels(&buf, label.DefaultAssets(), []string{"2019-june-h-1h-q4.png"}); err != nil {
		t.Fatalf("printLabels: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"2019 June Higher • Paper 1 • Question 4",
		"/edexcel-gcse-maths-questions/2019-june-h-1h-q4.png",
		"/edexcel-gcse-maths-papers/2019-june-h-1h.pdf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintLabels_Invalid(t *testing.T) {
	if err := printLabels(&bytes.Buffer{}, label.DefaultAssets(), []string{"../etc/passwd"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(buf.String()) != version.String() {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWorksheetCmd_RequiresInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"worksheet", "--annotated"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without label ids or session")
	}
}
