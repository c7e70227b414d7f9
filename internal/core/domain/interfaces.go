package domain

import (
	"context"

	"github.com/google/uuid"
)

// NotificationRepository handles the durable inbox. Rows are written when
// routing decides a notification is due and flipped to delivered once the
// worker pushed them to a live connection.
type NotificationRepository interface {
	Insert(ctx context.Context, n *Notification) error
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	// ListPending returns undelivered notifications for a recipient,
	// oldest first.
	ListPending(ctx context.Context, recipientID string, limit int) ([]Notification, error)
}
