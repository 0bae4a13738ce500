package domain

import "context"

// MailboxGateway produces a human-readable summary of unread mail.
//
// Implementations contain every failure: connection, search and parse errors
// are logged and converted to a fixed user-facing string. FetchUnreadSummary
// never returns an error.
type MailboxGateway interface {
	FetchUnreadSummary(ctx context.Context, limit int) string
}

// MessagingGateway delivers one text message to one destination.
//
// Unlike MailboxGateway, transport failures are returned to the caller, which
// decides how they are reported.
type MessagingGateway interface {
	Send(ctx context.Context, body, to string) (DeliveryReceipt, error)
}

// DeliveryReceipt identifies a message accepted by the outbound transport.
type DeliveryReceipt struct {
	ID        string
	Transport string
}
