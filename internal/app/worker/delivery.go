package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"lookout/internal/core/contracts"
	"lookout/internal/core/domain"
	"lookout/internal/core/services"
	"lookout/pkg/logging"
)

// DeliveryWorker consumes routed notifications from the queue. Recipients
// online on this node get an in-app push and their inbox row flipped to
// delivered; offline recipients keep the row pending for their next fetch.
// There is no retry machinery: delivery beyond routing is best-effort.
type DeliveryWorker struct {
	log           *slog.Logger
	queue         contracts.NotificationQueue
	hub           contracts.Registry
	presence      contracts.Presence
	notifications *services.NotificationService
	group         string
}

func NewDeliveryWorker(
	log *slog.Logger,
	queue contracts.NotificationQueue,
	hub contracts.Registry,
	presence contracts.Presence,
	notifications *services.NotificationService,
	group string,
) *DeliveryWorker {
	return &DeliveryWorker{
		log:           log,
		queue:         queue,
		hub:           hub,
		presence:      presence,
		notifications: notifications,
		group:         group,
	}
}

// Run blocks in the consumer loop until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker - delivery - consumer loop starting", "group", w.group)
	return w.queue.Subscribe(ctx, w.group, w.ProcessMessage)
}

func (w *DeliveryWorker) ProcessMessage(ctx context.Context, messageID string, raw []byte) error {
	var n domain.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		w.log.Error("worker - delivery - wrong payload", "message_id", messageID, logging.Err(err))
		// Poison entry: ack and drop so it cannot wedge the group.
		_ = w.queue.Acknowledge(ctx, w.group, messageID)
		_ = w.queue.Delete(ctx, messageID)
		return err
	}

	if _, online := w.presence.SocketFor(n.RecipientID); online {
		frame := domain.NotificationFrame{
			Type:      domain.TypeNotification,
			ID:        n.ID.String(),
			RoomID:    n.RoomID,
			SenderID:  n.SenderID,
			Kind:      n.Kind,
			Preview:   n.Preview,
			CreatedAt: n.CreatedAt,
		}
		data, _ := json.Marshal(frame)
		if w.hub.Push(ctx, n.RecipientID, data) {
			if err := w.notifications.MarkDelivered(ctx, n.ID); err != nil {
				w.log.ErrorContext(ctx, "worker - delivery - mark delivered failed",
					logging.Notification(n.ID.String()), logging.Err(err))
			} else {
				w.log.InfoContext(ctx, "worker - delivery - pushed in-app",
					logging.User(n.RecipientID), logging.Notification(n.ID.String()))
			}
		}
	} else {
		w.log.DebugContext(ctx, "worker - delivery - recipient offline, inbox row stays pending",
			logging.User(n.RecipientID), logging.Notification(n.ID.String()))
	}

	if err := w.queue.Acknowledge(ctx, w.group, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - delivery - acknowledge failed", "message_id", messageID, logging.Err(err))
		return err
	}
	if err := w.queue.Delete(ctx, messageID); err != nil {
		// Already ACKed; the stream MaxLen cap will reap it eventually.
		w.log.WarnContext(ctx, "worker - delivery - delete failed", "message_id", messageID, logging.Err(err))
	}
	return nil
}
