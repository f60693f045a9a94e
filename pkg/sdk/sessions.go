package paperfinder

import (
	"context"
	"fmt"
	"time"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
	sessionuc "github.com/paperfinder/paperfinder/internal/usecase/session"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

// SessionService manages search sessions: a match cursor plus the worksheet
// selection.
type SessionService struct {
	svc        *sessionuc.Service
	worksheets *worksheetuc.Service
	search     *searchuc.Service
	obs        *observer
}

// Create starts an empty session. opts may be nil.
func (s *SessionService) Create(ctx context.Context, opts *SearchOptions) (_ Session, err error) {
	defer s.observe("session_create", time.Now(), &err)

	f, err := toFilters(opts)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return s.result("create session")(s.svc.Create(ctx, f))
}

// Get loads a session. Unknown or expired ids return ErrNotFound.
func (s *SessionService) Get(ctx context.Context, id string) (_ Session, err error) {
	defer s.observe("session_get", time.Now(), &err)
	return s.result("get session")(s.svc.Get(ctx, id))
}

// Delete drops a session.
func (s *SessionService) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("session_delete", time.Now(), &err)

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Search replaces the session's matches with the results of query and
// points the cursor at the first one.
func (s *SessionService) Search(ctx context.Context, id, query string) (_ Session, err error) {
	defer s.observe("session_search", time.Now(), &err)
	return s.result("session search")(s.svc.Search(ctx, id, query))
}

// SetFilters replaces the session's search restrictions.
func (s *SessionService) SetFilters(ctx context.Context, id string, opts SearchOptions) (_ Session, err error) {
	defer s.observe("session_filters", time.Now(), &err)

	f, err := toFilters(&opts)
	if err != nil {
		return Session{}, fmt.Errorf("set filters: %w", err)
	}
	if f.Backend() == filter.BackendSecondary && !s.search.HasBackend(f.Backend()) {
		return Session{}, fmt.Errorf("set filters: %w: search backend %s is not configured",
			domain.ErrInvalidInput, f.Backend())
	}
	return s.result("set filters")(s.svc.SetFilters(ctx, id, f))
}

// Next moves the cursor forward, wrapping at the end.
func (s *SessionService) Next(ctx context.Context, id string) (_ Session, err error) {
	defer s.observe("session_next", time.Now(), &err)
	return s.result("next match")(s.svc.Next(ctx, id))
}

// Prev moves the cursor back, wrapping at the start.
func (s *SessionService) Prev(ctx context.Context, id string) (_ Session, err error) {
	defer s.observe("session_prev", time.Now(), &err)
	return s.result("previous match")(s.svc.Prev(ctx, id))
}

// ToggleSelection adds or removes a question from the worksheet selection and
// reports whether it is now selected.
func (s *SessionService) ToggleSelection(ctx context.Context, id, labelID string) (_ Session, _ bool, err error) {
	defer s.observe("session_toggle", time.Now(), &err)

	sess, selected, err := s.svc.ToggleSelection(ctx, id, labelID)
	if err != nil {
		return Session{}, false, fmt.Errorf("toggle selection: %w", err)
	}
	return fromSession(sess), selected, nil
}

// Worksheet renders the session's selection. annotated burns the session's
// drawings into the images.
func (s *SessionService) Worksheet(
	ctx context.Context, id string, mode WorksheetMode, annotated bool,
) (_ Worksheet, err error) {
	defer s.observe("session_worksheet", time.Now(), &err)

	m, err := toWorksheetMode(mode)
	if err != nil {
		return Worksheet{}, fmt.Errorf("worksheet: %w", err)
	}
	doc, err := s.worksheets.FromSession(ctx, id, m, annotated)
	if err != nil {
		return Worksheet{}, fmt.Errorf("worksheet: %w", err)
	}
	return Worksheet{Name: doc.Name, Data: doc.Data, Pages: doc.Pages}, nil
}

func (s *SessionService) observe(op string, start time.Time, err *error) {
	s.obs.observe(op, start, *err)
}

func (s *SessionService) result(op string) func(domsession.Session, error) (Session, error) {
	return func(sess domsession.Session, err error) (Session, error) {
		if err != nil {
			return Session{}, fmt.Errorf("%s: %w", op, err)
		}
		return fromSession(sess), nil
	}
}
