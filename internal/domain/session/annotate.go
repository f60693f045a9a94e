package session

import (
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/domain/chat"
)

// SetMode switches the annotation tool.
func (s *Session) SetMode(m annotation.Mode) error {
	if s.CurrentLabel() == "" {
		return ErrNoQuestion
	}
	s.board.SetMode(m)
	return nil
}

// HandleEvents applies pointer events in order.
func (s *Session) HandleEvents(events []annotation.Event) ([]annotation.Outcome, error) {
	if s.CurrentLabel() == "" {
		return nil, ErrNoQuestion
	}
	out := make([]annotation.Outcome, 0, len(events))
	for _, ev := range events {
		out = append(out, s.board.Handle(&s.book, ev))
	}
	return out, nil
}

// SubmitText stores the open text box content.
func (s *Session) SubmitText(text string) (bool, error) {
	if s.CurrentLabel() == "" {
		return false, ErrNoQuestion
	}
	return s.board.SubmitText(&s.book, text), nil
}

// CloseText discards the open text box.
func (s *Session) CloseText() { s.board.CloseText() }

// Undo removes the last annotation of the displayed question.
func (s *Session) Undo() (bool, error) {
	id := s.CurrentLabel()
	if id == "" {
		return false, ErrNoQuestion
	}
	return s.book.Undo(id), nil
}

// ClearAnnotations wipes both surfaces of the displayed question.
func (s *Session) ClearAnnotations() error {
	id := s.CurrentLabel()
	if id == "" {
		return ErrNoQuestion
	}
	s.book.Clear(id)
	return nil
}

// Drawing returns the annotations of one surface of the displayed question.
func (s Session) Drawing(surface annotation.Surface) (annotation.DrawingData, error) {
	id := s.CurrentLabel()
	if id == "" {
		return annotation.DrawingData{}, ErrNoQuestion
	}
	return s.book.Drawing(id, surface), nil
}

// BeginTutor records a user message for the displayed question.
func (s *Session) BeginTutor(text string, stepRequest bool, imageURL string) (chat.Turn, error) {
	if s.CurrentLabel() == "" {
		return chat.Turn{}, ErrNoQuestion
	}
	return s.tutor.Begin(text, stepRequest, imageURL)
}

// CompleteTutor stores the assistant reply and returns the stored text.
func (s *Session) CompleteTutor(reply string) string {
	return s.tutor.Complete(reply)
}

// FailTutor stores the canned error reply.
func (s *Session) FailTutor() { s.tutor.Fail() }
