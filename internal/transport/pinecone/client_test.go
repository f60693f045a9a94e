package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	"github.com/paperfinder/paperfinder/internal/domain/search/request"
)

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/records/namespaces/gcse/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pk" {
			t.Errorf("unexpected Api-Key: %s", r.Header.Get("Api-Key"))
		}
		if r.Header.Get("X-Pinecone-API-Version") != DefaultAPIVersion {
			t.Errorf("unexpected version header: %s", r.Header.Get("X-Pinecone-API-Version"))
		}

		var body struct {
			Query struct {
				Inputs struct {
					Text string `json:"text"`
				} `json:"inputs"`
				TopK   int            `json:"top_k"`
				Filter map[string]any `json:"filter"`
			} `json:"query"`
			Fields []string `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Query.Inputs.Text != "area of circle" || body.Query.TopK != 5 {
			t.Errorf("unexpected query: %+v", body.Query)
		}
		if body.Query.Filter["level"] != "h" {
			t.Errorf("unexpected filter: %+v", body.Query.Filter)
		}
		if len(body.Fields) != 2 || body.Fields[1] != "chunk_text" {
			t.Errorf("unexpected fields: %v", body.Fields)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"hits":[
			{"_id":"2019-june-h-1h-q4.png","_score":0.91,"fields":{"chunk_text":"Circle area"}},
			{"_id":"2020-nov-h-2h-q1.png","_score":0.8,"fields":{}}
		]}}`))
	}))
	defer server.Close()

	c := New(Config{APIKey: "pk", Host: server.URL, Namespace: "gcse"})
	hits, err := c.Search(context.Background(), "area of circle", 5, map[string]any{"level": "h"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "2019-june-h-1h-q4.png" || hits[0].Score != 0.91 || hits[0].Text != "Circle area" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
	if hits[1].Text != "" {
		t.Errorf("expected empty text, got %q", hits[1].Text)
	}
}

func TestSearch_OmitsEmptyFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["query"]["filter"]; ok {
			t.Error("filter must be omitted when empty")
		}
		_, _ = w.Write([]byte(`{"result":{"hits":[]}}`))
	}))
	defer server.Close()

	c := New(Config{APIKey: "pk", Host: server.URL})
	hits, err := c.Search(context.Background(), "x", 25, nil)
	if err != nil || len(hits) != 0 {
		t.Errorf("got %v, %v", hits, err)
	}
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"unauthorized", http.StatusUnauthorized, `{}`},
		{"missing hits", http.StatusOK, `{"result":{}}`},
		{"missing result", http.StatusOK, `{}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c := New(Config{APIKey: "pk", Host: server.URL})
			_, err := c.Search(context.Background(), "x", 25, nil)
			if !errors.Is(err, domain.ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestSearch_NotConfigured(t *testing.T) {
	for _, cfg := range []Config{{Host: "idx.pinecone.io"}, {APIKey: "pk"}} {
		c := New(cfg)
		if c.Configured() {
			t.Errorf("%+v should not be configured", cfg)
		}
		if _, err := c.Search(context.Background(), "x", 1, nil); !errors.Is(err, domain.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	}
}

func TestNew_BareHostGetsScheme(t *testing.T) {
	c := New(Config{APIKey: "k", Host: "idx-abc.svc.pinecone.io/"})
	if c.baseURL != "https://idx-abc.svc.pinecone.io" {
		t.Errorf("baseURL = %s", c.baseURL)
	}
	if c.namespace != DefaultNamespace {
		t.Errorf("namespace = %s", c.namespace)
	}
}

func TestMatches_FilterAndNoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query struct {
				TopK   int            `json:"top_k"`
				Filter map[string]any `json:"filter"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Query.TopK != 10 || body.Query.Filter["paper_number"] != "1" {
			t.Errorf("unexpected query: %+v", body.Query)
		}
		_, _ = w.Write([]byte(`{"result":{"hits":[{"_id":"a.png","_score":0.5,"fields":{}}]}}`))
	}))
	defer server.Close()

	f, err := filter.New("", "non-calculator", 10, "")
	if err != nil {
		t.Fatal(err)
	}
	q, err := request.New("  solve  ", f)
	if err != nil {
		t.Fatal(err)
	}
	got, err := New(Config{APIKey: "pk", Host: server.URL}).Matches(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].LabelID() != "a.png" || got[0].Text() != match.NoTextFound || got[0].Similarity() != 0.5 {
		t.Errorf("unexpected matches: %+v", got)
	}
}
