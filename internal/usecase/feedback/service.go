// Package feedback relays the contact form and the mailing list signup.
package feedback

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/logger"
)

// User-facing messages.
const (
	MsgEmailRequired   = "Please provide your email address."
	MsgMessageRequired = "Please let us know how we can help."
	MsgNotConfigured   = "EmailJS is not configured. Please contact the administrator."
	MsgSendFailed      = "Failed to send message. Please try again or contact us directly."
	MsgSent            = "Message sent successfully! We'll get back to you soon, God willing."

	MsgSignupEmailRequired = "Please enter your email"
	MsgSignupFailed        = "Failed to submit email. Please try again."
)

// Kind classifies a relay failure.
type Kind int

// Failure kinds.
const (
	KindInvalid Kind = iota
	KindNotConfigured
	KindUpstream
)

// Error is a relay failure carrying the message shown to the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Service validates submissions and hands them to the relays.
type Service struct {
	mailer     Mailer
	subscriber Subscriber
	logger     *zap.Logger
}

// New creates a feedback service.
func New(mailer Mailer, subscriber Subscriber, logger *zap.Logger) *Service {
	return &Service{mailer: mailer, subscriber: subscriber, logger: logger}
}

// Send relays a feedback message and returns the confirmation text.
func (s *Service) Send(ctx context.Context, email, message string) (string, error) {
	email, message = strings.TrimSpace(email), strings.TrimSpace(message)
	switch {
	case email == "":
		return "", &Error{Kind: KindInvalid, Message: MsgEmailRequired}
	case message == "":
		return "", &Error{Kind: KindInvalid, Message: MsgMessageRequired}
	}
	if s.mailer == nil || !s.mailer.Configured() {
		return "", &Error{Kind: KindNotConfigured, Message: MsgNotConfigured}
	}
	if err := s.mailer.SendFeedback(ctx, email, message); err != nil {
		logger.FromContextOr(ctx, s.logger).Error("Feedback relay failed", zap.Error(err))
		return "", &Error{Kind: KindUpstream, Message: MsgSendFailed, Err: err}
	}
	return MsgSent, nil
}

// Signup records an email address for launch updates.
func (s *Service) Signup(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &Error{Kind: KindInvalid, Message: MsgSignupEmailRequired}
	}
	if s.subscriber == nil {
		return &Error{Kind: KindNotConfigured, Message: MsgSignupFailed}
	}
	if err := s.subscriber.Subscribe(ctx, email); err != nil {
		logger.FromContextOr(ctx, s.logger).Error("Signup relay failed", zap.Error(err))
		return &Error{Kind: KindUpstream, Message: MsgSignupFailed, Err: err}
	}
	return nil
}

// AsError extracts a relay failure.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
