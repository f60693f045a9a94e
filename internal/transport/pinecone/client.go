// Package pinecone is a client for the Pinecone records search API with
// integrated embedding.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/request"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const (
	service = "pinecone"

	// DefaultNamespace is used when none is configured.
	DefaultNamespace = "example-namespace"
	// DefaultAPIVersion is the records API version header value.
	DefaultAPIVersion = "unstable"
)

// returnedFields are requested for every hit.
var returnedFields = []string{"category", "chunk_text"}

// Config holds one index endpoint.
type Config struct {
	APIKey     string
	Host       string
	Namespace  string
	APIVersion string
	Timeout    time.Duration
}

// Hit is one search result.
type Hit struct {
	ID    string
	Score float64
	Text  string
}

// Client searches one Pinecone index.
type Client struct {
	apiKey     string
	baseURL    string
	namespace  string
	apiVersion string
	http       *http.Client
}

// New creates a client. Host may be a bare hostname or a full URL.
func New(cfg Config) *Client {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	ver := cfg.APIVersion
	if ver == "" {
		ver = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.Host, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		namespace:  ns,
		apiVersion: ver,
		http:       &http.Client{Timeout: timeout},
	}
}

// Configured reports whether both API key and host are set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

type searchRequest struct {
	Query  queryBody `json:"query"`
	Fields []string  `json:"fields"`
}

type queryBody struct {
	Inputs inputs         `json:"inputs"`
	TopK   int            `json:"top_k"`
	Filter map[string]any `json:"filter,omitempty"`
}

type inputs struct {
	Text string `json:"text"`
}

type searchResponse struct {
	Result *struct {
		Hits *[]struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Fields struct {
				ChunkText string `json:"chunk_text"`
			} `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

// Search runs a text query with an optional metadata filter.
func (c *Client) Search(ctx context.Context, text string, topK int, filter map[string]any) ([]Hit, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("pinecone: api key or index host missing: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(searchRequest{
		Query:  queryBody{Inputs: inputs{Text: text}, TopK: topK, Filter: filter},
		Fields: returnedFields,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/records/namespaces/%s/search", c.baseURL, url.PathEscape(c.namespace))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", c.apiVersion)

	start := time.Now()
	hits, err := c.do(req)
	metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
	return hits, err
}

// Matches runs q against the index and converts the hits into matches.
func (c *Client) Matches(ctx context.Context, q request.Query) ([]match.Match, error) {
	hits, err := c.Search(ctx, q.Text(), q.TopK(), q.Filters().Metadata())
	if err != nil {
		return nil, err
	}
	out := make([]match.Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, match.New(h.ID, h.Text, h.Score))
	}
	return out, nil
}

func (c *Client) do(req *http.Request) ([]Hit, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return nil, fmt.Errorf("pinecone request: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return nil, fmt.Errorf("read pinecone response: %w: %w", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "status").Inc()
		return nil, domain.NewUpstreamError(service, resp.StatusCode, snippet(data))
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "decode").Inc()
		return nil, fmt.Errorf("decode pinecone response: %w: %w", domain.ErrUpstream, err)
	}
	if parsed.Result == nil || parsed.Result.Hits == nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "empty_response").Inc()
		return nil, domain.NewUpstreamError(service, resp.StatusCode, "response has no result.hits")
	}

	hits := make([]Hit, 0, len(*parsed.Result.Hits))
	for _, h := range *parsed.Result.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Text: h.Fields.ChunkText})
	}
	return hits, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
