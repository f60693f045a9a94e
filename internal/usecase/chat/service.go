package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
	domchat "github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/session"
)

// Service proxies chat completions and runs tutor turns.
type Service struct {
	provider Provider
	budget   BudgetChecker
	sessions SessionRepository
	images   ImageFetcher
	assets   label.Assets
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a chat service. provider, budget and images can be nil.
func New(
	provider Provider, budget BudgetChecker, sessions SessionRepository,
	images ImageFetcher, assets label.Assets, logger *zap.Logger,
) *Service {
	return &Service{
		provider: provider,
		budget:   budget,
		sessions: sessions,
		images:   images,
		assets:   assets,
		logger:   logger,
		now:      time.Now,
	}
}

// Proxy opens an upstream stream for a raw conversation. Usage reported by
// the provider is charged to the budget.
func (s *Service) Proxy(ctx context.Context, req domchat.Request) (domchat.Stream, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("chat provider: %w", domain.ErrNotConfigured)
	}
	if err := s.checkBudget(ctx); err != nil {
		return nil, err
	}
	st, err := s.provider.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open chat stream: %w", err)
	}
	return &meteredStream{Stream: st, budget: s.budget}, nil
}

// TutorInput is one user action in the tutor panel. A non-empty Action
// replaces Text with the quick action prompt.
type TutorInput struct {
	Text   string
	Action domchat.Action
}

// TutorReply is the outcome of a tutor turn.
type TutorReply struct {
	Text             string
	Step             int
	StepMode         bool
	SolutionComplete bool
}

// Tutor runs one tutor turn for the session's current question. emit receives
// each content delta as it arrives. The transcript is saved whether the
// upstream call succeeds or not.
func (s *Service) Tutor(
	ctx context.Context, sessionID string, in TutorInput, emit func(string) error,
) (TutorReply, error) {
	text, stepRequest := in.Text, false
	if in.Action != "" {
		var err error
		if text, stepRequest, err = domchat.QuickAction(in.Action); err != nil {
			return TutorReply{}, err
		}
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return TutorReply{}, fmt.Errorf("load session: %w", err)
	}
	labelID := sess.CurrentLabel()
	if labelID == "" {
		return TutorReply{}, session.ErrNoQuestion
	}
	if err := s.checkBudget(ctx); err != nil {
		return TutorReply{}, err
	}

	turn, err := sess.BeginTutor(text, stepRequest, s.questionImage(ctx, labelID))
	if err != nil {
		return TutorReply{}, err
	}

	reply, streamErr := s.stream(ctx, turn.Messages, emit)
	if streamErr != nil {
		s.logger.Error("Tutor request failed",
			zap.String("session_id", sessionID),
			zap.String("label_id", labelID),
			zap.Error(streamErr),
		)
		sess.FailTutor()
		reply = domchat.ErrorReply
	} else {
		reply = sess.CompleteTutor(reply)
	}

	sess.Touch(s.now().UnixMilli())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return TutorReply{}, fmt.Errorf("save session: %w", err)
	}
	if streamErr != nil {
		return TutorReply{}, streamErr
	}

	tr := sess.Tutor()
	return TutorReply{
		Text:             reply,
		Step:             turn.Step,
		StepMode:         tr.StepMode(),
		SolutionComplete: tr.SolutionComplete(),
	}, nil
}

// Transcript returns the tutor transcript of a session.
func (s *Service) Transcript(ctx context.Context, sessionID string) (domchat.Transcript, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domchat.Transcript{}, fmt.Errorf("load session: %w", err)
	}
	return sess.Tutor(), nil
}

func (s *Service) stream(ctx context.Context, msgs []domchat.Message, emit func(string) error) (string, error) {
	req, err := domchat.NewRequest(msgs, "", 0)
	if err != nil {
		return "", err
	}
	st, err := s.Proxy(ctx, req)
	if err != nil {
		return "", err
	}
	defer st.Close()

	var b strings.Builder
	for {
		d, err := st.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("read chat stream: %w", err)
		}
		if d.Content == "" {
			continue
		}
		b.WriteString(d.Content)
		if emit != nil {
			if err := emit(d.Content); err != nil {
				return "", fmt.Errorf("emit delta: %w", err)
			}
		}
	}
}

// questionImage returns the question image as a data URL, or "" when it
// cannot be loaded. The tutor still answers without it.
func (s *Service) questionImage(ctx context.Context, labelID string) string {
	if s.images == nil {
		return ""
	}
	data, err := s.images.Fetch(ctx, s.assets.QuestionPath(labelID))
	if err != nil {
		s.logger.Warn("Question image unavailable for tutor",
			zap.String("label_id", labelID), zap.Error(err))
		return ""
	}
	mime := "image/png"
	if label.IsJPEG(labelID) {
		mime = "image/jpeg"
	}
	img, err := domain.NewImage(data, mime)
	if err != nil {
		s.logger.Warn("Question image rejected", zap.String("label_id", labelID), zap.Error(err))
		return ""
	}
	return img.DataURL()
}

func (s *Service) checkBudget(ctx context.Context) error {
	if s.budget == nil {
		return nil
	}
	if err := s.budget.Check(ctx); err != nil {
		return fmt.Errorf("chat budget: %w", err)
	}
	return nil
}

// meteredStream charges reported usage to the budget.
type meteredStream struct {
	domchat.Stream
	budget BudgetChecker
}

func (m *meteredStream) Recv() (domchat.Delta, error) {
	d, err := m.Stream.Recv()
	if err == nil && d.Usage != nil && m.budget != nil {
		m.budget.Record(int64(d.Usage.TotalTokens))
	}
	return d, err
}
