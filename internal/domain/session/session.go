// Package session is the per-user workspace aggregate: the current match
// list, search filters, worksheet selection, annotations and tutor chat.
package session

import (
	"fmt"
	"regexp"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	"github.com/paperfinder/paperfinder/internal/domain/selection"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9-]{1,64}$`)

// ErrNoQuestion is returned by operations that need a displayed question.
var ErrNoQuestion = fmt.Errorf("%w: no question is displayed", domain.ErrInvalidInput)

// ValidateID checks a session id taken from a URL.
func ValidateID(id string) error {
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: malformed session id", domain.ErrInvalidInput)
	}
	return nil
}

// Session is the workspace aggregate.
type Session struct {
	id        string
	createdAt int64
	updatedAt int64
	query     string
	filters   filter.Filters
	cursor    match.Cursor
	selection selection.Set
	book      annotation.Book
	board     annotation.Board
	tutor     chat.Transcript
}

// New creates an empty session.
func New(id string, filters filter.Filters, now int64) (Session, error) {
	if err := ValidateID(id); err != nil {
		return Session{}, err
	}
	return Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		filters:   filters,
		cursor:    match.NewCursor(nil),
		selection: selection.New(),
		book:      annotation.NewBook(),
		board:     annotation.NewBoard(),
		tutor:     chat.NewTranscript(),
	}, nil
}

// State is the full persisted form of a session.
type State struct {
	ID        string
	CreatedAt int64
	UpdatedAt int64
	Query     string
	Filters   filter.Filters
	Cursor    match.Cursor
	Selection selection.Set
	Book      annotation.Book
	Board     annotation.Board
	Tutor     chat.Transcript
}

// Reconstruct rebuilds a session from storage without validation.
func Reconstruct(s State) Session {
	return Session{
		id:        s.ID,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		query:     s.Query,
		filters:   s.Filters,
		cursor:    s.Cursor,
		selection: s.Selection,
		book:      s.Book,
		board:     s.Board,
		tutor:     s.Tutor,
	}
}

// ID returns the session id.
func (s Session) ID() string { return s.id }

// CreatedAt returns the creation time in unix milliseconds.
func (s Session) CreatedAt() int64 { return s.createdAt }

// UpdatedAt returns the last write time in unix milliseconds.
func (s Session) UpdatedAt() int64 { return s.updatedAt }

// Query returns the text of the last search.
func (s Session) Query() string { return s.query }

// Filters returns the active search filters.
func (s Session) Filters() filter.Filters { return s.filters }

// Cursor returns the match list and position.
func (s Session) Cursor() match.Cursor { return s.cursor }

// Selection returns the worksheet selection.
func (s Session) Selection() selection.Set { return s.selection }

// Book returns all annotations.
func (s Session) Book() annotation.Book { return s.book }

// Board returns the annotation tool state.
func (s Session) Board() annotation.Board { return s.board }

// Tutor returns the tutor transcript of the displayed question.
func (s Session) Tutor() chat.Transcript { return s.tutor }

// Touch records a write.
func (s *Session) Touch(now int64) { s.updatedAt = now }

// SetFilters replaces the search filters.
func (s *Session) SetFilters(f filter.Filters) { s.filters = f }

// ApplyResults replaces the match list with the outcome of a search.
func (s *Session) ApplyResults(query string, matches []match.Match) {
	s.query = query
	s.cursor.Replace(matches)
	s.refocus()
}

// Next moves to the following match, wrapping around.
func (s *Session) Next() {
	s.cursor.Next()
	s.refocus()
}

// Prev moves to the preceding match, wrapping around.
func (s *Session) Prev() {
	s.cursor.Prev()
	s.refocus()
}

// CurrentLabel returns the id of the displayed question, or "" when there
// is none or the current match is the error sentinel.
func (s Session) CurrentLabel() string {
	m, ok := s.cursor.Current()
	if !ok || m.IsError() {
		return ""
	}
	return m.LabelID()
}

func (s *Session) refocus() {
	id := s.CurrentLabel()
	s.board.Focus(id)
	s.tutor.Focus(id)
}

// ToggleSelection adds or removes a question from the worksheet. Returns
// true when the question is now selected.
func (s *Session) ToggleSelection(labelID string) bool {
	return s.selection.Toggle(labelID)
}

// RemoveSelection drops a question from the worksheet.
func (s *Session) RemoveSelection(labelID string) bool {
	return s.selection.Remove(labelID)
}
