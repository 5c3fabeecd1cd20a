package mail

import (
	"context"

	"course_outreach/internal/domain/outreach"
)

// Message is one rendered email ready for delivery.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Sender delivers a message. Implementations return only after the message
// has been accepted by the relay.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Letter is the data a body template is executed with.
type Letter struct {
	FirstName string
	Subject   string
	Code      outreach.MessageCode
	Content   outreach.Content
}
