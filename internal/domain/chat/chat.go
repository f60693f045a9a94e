// Package chat holds chat completion requests and the per-question tutor
// conversation.
package chat

import (
	"fmt"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// Defaults applied to proxied requests.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 400
	MaxMaxTokens     = 4096
)

// Role is a chat participant.
type Role string

// Role constants.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType is the kind of a multi-part message piece.
type PartType string

// PartType constants.
const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// Part is one piece of a multi-part message.
type Part struct {
	Type     PartType
	Text     string
	ImageURL string
}

// Message is a chat message. Content is either Text or Parts; Parts wins
// when both are set.
type Message struct {
	Role  Role
	Text  string
	Parts []Part
}

// TextMessage builds a plain text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

// Validate checks role and part types.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, m.Role)
	}
	for _, p := range m.Parts {
		switch p.Type {
		case PartText:
		case PartImageURL:
			if p.ImageURL == "" {
				return fmt.Errorf("%w: image_url part without url", domain.ErrInvalidInput)
			}
		default:
			return fmt.Errorf("%w: unknown content part %q", domain.ErrInvalidInput, p.Type)
		}
	}
	return nil
}

// Request is a streaming completion request.
type Request struct {
	messages  []Message
	model     string
	maxTokens int
}

// NewRequest validates messages and applies defaults for model and token limit.
func NewRequest(messages []Message, model string, maxTokens int) (Request, error) {
	if len(messages) == 0 {
		return Request{}, fmt.Errorf("%w: Messages are required", domain.ErrInvalidInput)
	}
	for _, m := range messages {
		if err := m.Validate(); err != nil {
			return Request{}, err
		}
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens < 0 || maxTokens > MaxMaxTokens {
		return Request{}, fmt.Errorf("%w: max_tokens must be between 1 and %d", domain.ErrInvalidInput, MaxMaxTokens)
	}
	return Request{messages: messages, model: model, maxTokens: maxTokens}, nil
}

// Messages returns the conversation to complete.
func (r Request) Messages() []Message { return r.messages }

// Model returns the model name.
func (r Request) Model() string { return r.model }

// MaxTokens returns the completion token limit.
func (r Request) MaxTokens() int { return r.maxTokens }

// Usage is the token accounting of a finished stream.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Delta is one streamed piece of a completion. The final delta of a stream
// may carry only Usage.
type Delta struct {
	Content string
	Usage   *Usage
}

// Stream yields deltas until Recv returns io.EOF.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}
