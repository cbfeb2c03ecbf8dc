package mail

import "context"

// Sender delivers a single message to a single address.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outgoing email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}
