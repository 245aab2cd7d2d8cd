package interfaces

import "context"

// NotificationSink delivers rendered alert messages to a recipient.
// Implementations must be safe for concurrent use.
type NotificationSink interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
