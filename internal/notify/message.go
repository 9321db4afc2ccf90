package notify

import "github.com/google/uuid"

const (
	KindVerificationEmail = "verification_email"
	KindWelcomeEmail      = "welcome_email"
)

// Message is one unit of work for the dispatcher. Attempts counts deliveries
// tried so far, including the one in flight.
type Message struct {
	ID       string
	Kind     string
	To       string
	Subject  string
	Body     string
	Attempts int
}

func NewMessage(kind, to, subject, body string) Message {
	return Message{
		ID:      uuid.NewString(),
		Kind:    kind,
		To:      to,
		Subject: subject,
		Body:    body,
	}
}
