package email

import (
	"context"
)

// Message is one outbound reminder email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender is the outbound transport. Send returns the provider message id used
// to correlate asynchronous delivery callbacks. Implementations must respect
// ctx cancellation so a stuck relay cannot stall a dispatch batch.
type Sender interface {
	Send(ctx context.Context, msg *Message) (providerMessageID string, err error)
}
