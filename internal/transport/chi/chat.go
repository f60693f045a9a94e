package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
	domchat "github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/logger"
	chatuc "github.com/paperfinder/paperfinder/internal/usecase/chat"
)

const (
	msgMessagesRequired = "Messages are required"
	msgInternalError    = "Internal Server Error"
)

// ChatContent is message content given either as a plain string or as an
// array of {type: text|image_url} parts.
type ChatContent struct {
	Text  string
	Parts []domchat.Part
}

type contentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL json.RawMessage `json:"image_url,omitempty"`
}

// UnmarshalJSON accepts both content forms.
func (c *ChatContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &c.Text) //nolint:wrapcheck // decode error
	}
	var parts []contentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	c.Parts = make([]domchat.Part, 0, len(parts))
	for _, p := range parts {
		part := domchat.Part{Type: domchat.PartType(p.Type), Text: p.Text}
		if len(p.ImageURL) > 0 {
			url, err := imageURL(p.ImageURL)
			if err != nil {
				return err
			}
			part.ImageURL = url
		}
		c.Parts = append(c.Parts, part)
	}
	return nil
}

// MarshalJSON writes the string form when there are no parts.
func (c ChatContent) MarshalJSON() ([]byte, error) {
	if len(c.Parts) == 0 {
		return json.Marshal(c.Text) //nolint:wrapcheck // encode error
	}
	parts := make([]map[string]any, len(c.Parts))
	for i, p := range c.Parts {
		if p.Type == domchat.PartImageURL {
			parts[i] = map[string]any{"type": p.Type, "image_url": map[string]string{"url": p.ImageURL}}
			continue
		}
		parts[i] = map[string]any{"type": p.Type, "text": p.Text}
	}
	return json.Marshal(parts) //nolint:wrapcheck // encode error
}

// imageURL accepts {"url": "..."} or a bare string.
func imageURL(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("image_url must be a string or {url}: %w", err)
	}
	return obj.URL, nil
}

// sseWriter writes server-sent events and flushes after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	f, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: f}
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

func (s *sseWriter) data(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.raw(b)
}

func (s *sseWriter) raw(b []byte) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) done() error {
	return s.raw([]byte("[DONE]"))
}

type contentEvent struct {
	Content string `json:"content"`
}

type tutorEvent struct {
	Done             bool   `json:"done"`
	Text             string `json:"text,omitempty"`
	Step             int    `json:"step,omitempty"`
	StepMode         bool   `json:"step_mode"`
	SolutionComplete bool   `json:"solution_complete"`
	Error            string `json:"error,omitempty"`
}

// ChatStream handles POST /v1/chat/stream.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Messages) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, msgMessagesRequired)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	log := logger.FromContextOr(r.Context(), s.logger)
	stream, err := s.chat.Proxy(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			s.handleDomainError(w, r, err)
			return
		}
		log.Error("Chat stream failed to open", zap.String("model", req.Model()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, msgInternalError)
		return
	}
	defer func() { _ = stream.Close() }()

	sse := newSSEWriter(w)
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Headers are already out; the client sees the stream end early.
			log.Error("Chat stream interrupted", zap.Error(err))
			if !sse.started {
				writeError(w, http.StatusInternalServerError, CodeInternalError, msgInternalError)
			}
			return
		}
		if d.Content == "" {
			continue
		}
		if err := sse.data(contentEvent{Content: d.Content}); err != nil {
			log.Debug("Chat client went away", zap.Error(err))
			return
		}
	}
	_ = sse.done()
}

// Tutor handles POST /v1/sessions/{id}/tutor. Deltas are streamed as
// content events, followed by one summary event and [DONE].
func (s *Server) Tutor(w http.ResponseWriter, r *http.Request) {
	var body TutorRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sse := newSSEWriter(w)
	emit := func(delta string) error {
		return sse.data(contentEvent{Content: delta})
	}

	reply, err := s.chat.Tutor(r.Context(), sessionID(r), chatuc.TutorInput{
		Text:   body.Message,
		Action: domchat.Action(body.Action),
	}, emit)
	if err != nil {
		// The transcript already holds the canned reply for upstream failures.
		if !sse.started && !errors.Is(err, domain.ErrUpstream) {
			s.handleDomainError(w, r, err)
			return
		}
		_ = sse.data(tutorEvent{Done: true, Error: domchat.ErrorReply})
		_ = sse.done()
		return
	}

	_ = sse.data(tutorEvent{
		Done:             true,
		Text:             reply.Text,
		Step:             reply.Step,
		StepMode:         reply.StepMode,
		SolutionComplete: reply.SolutionComplete,
	})
	_ = sse.done()
}

// Transcript handles GET /v1/sessions/{id}/tutor. ?render=false skips the
// markdown rendering.
func (s *Server) Transcript(w http.ResponseWriter, r *http.Request) {
	t, err := s.chat.Transcript(r.Context(), sessionID(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp, err := transcriptToResponse(t, r.URL.Query().Get("render") != "false")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
