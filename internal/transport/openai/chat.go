package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/metrics"
)

const service = "openai"

// Chat streams completions from an OpenAI-compatible API.
type Chat struct {
	client *openai.Client
	user   string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	User    string
	Logger  *zap.Logger
}

// NewChat creates an OpenAI-compatible chat provider.
func NewChat(cfg *Config) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		client: openai.NewClientWithConfig(clientCfg),
		user:   cfg.User,
		logger: logger,
	}
}

// Stream opens a streaming completion. Errors before the first byte are
// returned here; later ones come from Recv.
func (c *Chat) Stream(ctx context.Context, req chat.Request) (chat.Stream, error) {
	start := time.Now()

	s, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:         req.Model(),
		Messages:      toMessages(req.Messages()),
		MaxTokens:     req.MaxTokens(),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
		User:          c.user,
	})
	if err != nil {
		metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "api_error").Inc()
		return nil, parseAPIError(err)
	}
	return &stream{inner: s, model: req.Model(), start: start}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Chat) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

type stream struct {
	inner *openai.ChatCompletionStream
	model string
	start time.Time
	done  bool
}

func (s *stream) Recv() (chat.Delta, error) {
	resp, err := s.inner.Recv()
	if errors.Is(err, io.EOF) {
		s.finish(nil)
		return chat.Delta{}, io.EOF
	}
	if err != nil {
		s.finish(err)
		metrics.UpstreamErrorsTotal.WithLabelValues(service, "stream").Inc()
		return chat.Delta{}, parseAPIError(err)
	}

	var d chat.Delta
	if len(resp.Choices) > 0 {
		d.Content = resp.Choices[0].Delta.Content
	}
	if resp.Usage != nil {
		d.Usage = &chat.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		metrics.ChatTokensTotal.WithLabelValues(s.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(s.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	return d, nil
}

func (s *stream) Close() error {
	s.finish(nil)
	return s.inner.Close() //nolint:wrapcheck // closing the HTTP body
}

func (s *stream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	metrics.ObserveUpstream(service, time.Since(s.start).Seconds(), err)
}

func toMessages(msgs []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{Role: string(m.Role)}
		if len(m.Parts) == 0 {
			cm.Content = m.Text
			out = append(out, cm)
			continue
		}
		for _, p := range m.Parts {
			switch p.Type {
			case chat.PartImageURL:
				cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL},
				})
			default:
				cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		}
		out = append(out, cm)
	}
	return out
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrUpstream for correct 502 mapping.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewUpstreamError(service, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewUpstreamError(service, reqErr.HTTPStatusCode, detail)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat request: %w", err)
	}
	return fmt.Errorf("chat request failed: %w: %w", domain.ErrUpstream, err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
