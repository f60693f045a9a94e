package session

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	"github.com/paperfinder/paperfinder/internal/render"
)

// Service manages the per-user workspace: match cursor, selection and
// annotations. Every mutation is a load-modify-save of the whole session;
// concurrent writers to one session are last-writer-wins.
type Service struct {
	repo   Repository
	search Searcher
	now    func() time.Time
}

// New creates a session service.
func New(repo Repository, search Searcher) *Service {
	return &Service{repo: repo, search: search, now: time.Now}
}

// Create starts an empty session with the given filters.
func (s *Service) Create(ctx context.Context, f filter.Filters) (domsession.Session, error) {
	if err := s.checkBackend(f); err != nil {
		return domsession.Session{}, err
	}
	sess, err := domsession.New(uuid.NewString(), f, s.now().UnixMilli())
	if err != nil {
		return domsession.Session{}, fmt.Errorf("new session: %w", err)
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return domsession.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id string) (domsession.Session, error) {
	if err := domsession.ValidateID(id); err != nil {
		return domsession.Session{}, err
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Delete drops a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := domsession.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SetFilters replaces the session filters. The match list is kept.
func (s *Service) SetFilters(ctx context.Context, id string, f filter.Filters) (domsession.Session, error) {
	if err := s.checkBackend(f); err != nil {
		return domsession.Session{}, err
	}
	return s.update(ctx, id, func(sess *domsession.Session) error {
		sess.SetFilters(f)
		return nil
	})
}

// Search runs a text query with the session filters and replaces the match
// list. A blank query leaves the session untouched.
func (s *Service) Search(ctx context.Context, id, text string) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		res, err := s.search.Search(ctx, text, sess.Filters())
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		sess.ApplyResults(res.Query, res.Matches)
		return nil
	})
}

// SearchImage recognizes the image and searches with the extracted text.
func (s *Service) SearchImage(ctx context.Context, id string, img domain.Image) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		res := s.search.SearchImage(ctx, img, sess.Filters())
		sess.ApplyResults(res.Query, res.Matches)
		return nil
	})
}

// Next moves to the following match.
func (s *Service) Next(ctx context.Context, id string) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		sess.Next()
		return nil
	})
}

// Prev moves to the preceding match.
func (s *Service) Prev(ctx context.Context, id string) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		sess.Prev()
		return nil
	})
}

// ToggleSelection adds or removes a question from the worksheet selection.
func (s *Service) ToggleSelection(ctx context.Context, id, labelID string) (domsession.Session, bool, error) {
	if err := label.Validate(labelID); err != nil {
		return domsession.Session{}, false, err //nolint:wrapcheck // domain validation error
	}
	var selected bool
	sess, err := s.update(ctx, id, func(sess *domsession.Session) error {
		selected = sess.ToggleSelection(labelID)
		return nil
	})
	return sess, selected, err
}

// RemoveSelection drops a question from the worksheet selection.
func (s *Service) RemoveSelection(ctx context.Context, id, labelID string) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		if !sess.RemoveSelection(labelID) {
			return fmt.Errorf("question %s is not selected: %w", labelID, domain.ErrNotFound)
		}
		return nil
	})
}

// SetMode switches the annotation tool.
func (s *Service) SetMode(ctx context.Context, id string, m annotation.Mode) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		return sess.SetMode(m)
	})
}

// HandleEvents applies a batch of pointer events in order.
func (s *Service) HandleEvents(
	ctx context.Context, id string, events []annotation.Event,
) (domsession.Session, []annotation.Outcome, error) {
	var out []annotation.Outcome
	sess, err := s.update(ctx, id, func(sess *domsession.Session) error {
		var err error
		out, err = sess.HandleEvents(events)
		return err
	})
	return sess, out, err
}

// SubmitText stores the content of the open text input. A blank text keeps
// the input open and returns false. Cancel closes the input instead.
func (s *Service) SubmitText(ctx context.Context, id, text string, cancel bool) (domsession.Session, bool, error) {
	var added bool
	sess, err := s.update(ctx, id, func(sess *domsession.Session) error {
		if cancel {
			sess.CloseText()
			return nil
		}
		var err error
		added, err = sess.SubmitText(text)
		return err
	})
	return sess, added, err
}

// Undo removes the last annotation of the displayed question.
func (s *Service) Undo(ctx context.Context, id string) (domsession.Session, bool, error) {
	var removed bool
	sess, err := s.update(ctx, id, func(sess *domsession.Session) error {
		var err error
		removed, err = sess.Undo()
		return err
	})
	return sess, removed, err
}

// Clear removes every annotation of the displayed question.
func (s *Service) Clear(ctx context.Context, id string) (domsession.Session, error) {
	return s.update(ctx, id, func(sess *domsession.Session) error {
		return sess.ClearAnnotations()
	})
}

// Drawing returns the annotations of one surface of the displayed question.
func (s *Service) Drawing(ctx context.Context, id string, surface annotation.Surface) (annotation.DrawingData, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return annotation.DrawingData{}, err
	}
	return sess.Drawing(surface) //nolint:wrapcheck // domain error
}

// Overlay replays one surface onto a transparent image of the surface size,
// optionally scaled to displayWidth.
func (s *Service) Overlay(
	ctx context.Context, id string, surface annotation.Surface, width, height, displayWidth int,
) (image.Image, error) {
	if displayWidth < 0 || displayWidth > render.MaxDimension {
		return nil, fmt.Errorf("%w: display width %d out of range", domain.ErrInvalidInput, displayWidth)
	}
	d, err := s.Drawing(ctx, id, surface)
	if err != nil {
		return nil, err
	}
	img, err := render.Overlay(d, width, height)
	if err != nil {
		return nil, fmt.Errorf("render overlay: %w", err)
	}
	return render.Resize(img, displayWidth), nil
}

func (s *Service) update(
	ctx context.Context, id string, fn func(*domsession.Session) error,
) (domsession.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domsession.Session{}, err
	}
	if err := fn(&sess); err != nil {
		return domsession.Session{}, err
	}
	sess.Touch(s.now().UnixMilli())
	if err := s.repo.Save(ctx, sess); err != nil {
		return domsession.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// checkBackend rejects the secondary backend when it has no host. A missing
// primary host is reported per search as the error match.
func (s *Service) checkBackend(f filter.Filters) error {
	if f.Backend() == filter.BackendSecondary && s.search != nil && !s.search.HasBackend(f.Backend()) {
		return fmt.Errorf("%w: search backend %s is not configured", domain.ErrInvalidInput, f.Backend())
	}
	return nil
}
