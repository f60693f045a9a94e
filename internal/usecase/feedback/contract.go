package feedback

import "context"

// Mailer relays a feedback message.
type Mailer interface {
	Configured() bool
	SendFeedback(ctx context.Context, from, message string) error
}

// Subscriber records a signup email.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) error
}
