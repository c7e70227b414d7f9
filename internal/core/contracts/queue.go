package contracts

import "context"

// NotificationQueue decouples routing from delivery: dispatch publishes a
// routed notification, the delivery worker consumes it.
type NotificationQueue interface {
	// Publish appends a routed notification to the stream.
	Publish(ctx context.Context, payload []byte) error
	// Subscribe starts the consumer-group read loop and feeds each entry to
	// handler. Runs until ctx is cancelled.
	Subscribe(ctx context.Context, group string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// Acknowledge removes the message from the group's pending list.
	Acknowledge(ctx context.Context, group, messageID string) error
	// Delete drops the message from the stream once processed.
	Delete(ctx context.Context, messageID string) error
}
