// Package mistral implements domain.Recognizer on the Mistral OCR API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const service = "mistral"

// Defaults for the hosted API.
const (
	DefaultBaseURL = "https://api.mistral.ai"
	DefaultModel   = "mistral-ocr-latest"
)

// Compile-time check.
var _ domain.Recognizer = (*OCR)(nil)

// Config holds OCR client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OCR calls the /v1/ocr endpoint.
type OCR struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// New creates an OCR client.
func New(cfg Config) *OCR {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OCR{apiKey: cfg.APIKey, baseURL: base, model: model, http: &http.Client{Timeout: timeout}}
}

type ocrRequest struct {
	Model              string   `json:"model"`
	Document           document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

type document struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type ocrResponse struct {
	Pages []struct {
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// Recognize returns the markdown of the first page, or the no-text
// placeholder when the page is blank.
func (o *OCR) Recognize(ctx context.Context, img domain.Image) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("mistral: api key missing: %w", domain.ErrNotConfigured)
	}

	body, err := json.Marshal(ocrRequest{
		Model: o.model,
		Document: document{
			Type:     "image_url",
			ImageURL: img.DataURL(),
		},
		IncludeImageBase64: true,
	})
	if err != nil {
		return "", fmt.Errorf("encode ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	text, err := o.do(req)
	metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
	return text, err
}

func (o *OCR) do(req *http.Request) (string, error) {
	resp, err := o.http.Do(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return "", fmt.Errorf("ocr request: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "transport").Inc()
		return "", fmt.Errorf("read ocr response: %w: %w", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "status").Inc()
		return "", domain.NewUpstreamError(service, resp.StatusCode, extractMessage(data))
	}

	var parsed ocrResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "decode").Inc()
		return "", fmt.Errorf("decode ocr response: %w: %w", domain.ErrUpstream, err)
	}
	if len(parsed.Pages) == 0 || parsed.Pages[0].Markdown == "" {
		return match.NoTextFound, nil
	}
	return parsed.Pages[0].Markdown, nil
}

// HealthCheck verifies the API key against the models endpoint.
func (o *OCR) HealthCheck(ctx context.Context) error {
	if o.apiKey == "" {
		return fmt.Errorf("mistral: api key missing: %w", domain.ErrNotConfigured)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("build models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.NewUpstreamError(service, resp.StatusCode, "")
	}
	return nil
}

// extractMessage pulls "message" or "detail" out of a JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if s, ok := parsed.Detail.(string); ok {
			return s
		}
	}
	return ""
}
