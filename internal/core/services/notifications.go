package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"lookout/internal/core/contracts"
	"lookout/internal/core/domain"
	"lookout/pkg/logging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NotificationService is the dispatch side of routing: it asks the presence
// tracker whether each recipient should be notified, persists the inbox row
// and hands the rest to the delivery worker through the queue.
type NotificationService struct {
	presence  contracts.Presence
	queue     contracts.NotificationQueue
	repo      domain.NotificationRepository
	txManager contracts.TxManager
	log       *slog.Logger
}

func NewNotificationService(
	log *slog.Logger,
	presence contracts.Presence,
	queue contracts.NotificationQueue,
	repo domain.NotificationRepository,
	txManager contracts.TxManager,
) *NotificationService {
	return &NotificationService{
		log:       log,
		presence:  presence,
		queue:     queue,
		repo:      repo,
		txManager: txManager,
	}
}

// Dispatch routes one chat event. Recipients currently viewing the event's
// room are suppressed; everyone else gets an inbox row and a queue entry.
// Returns how many notifications were queued and how many suppressed.
func (s *NotificationService) Dispatch(ctx context.Context, ev domain.ChatEvent) (queued, suppressed int, err error) {
	ctx, span := tracer.Start(ctx, "NotificationService.Dispatch", trace.WithAttributes(
		attribute.String("room_id", ev.RoomID),
		attribute.String("sender_id", ev.SenderID),
		attribute.Int("recipients", len(ev.RecipientIDs)),
	))
	defer span.End()

	if ev.SenderID == "" {
		span.RecordError(domain.ErrMissingSender)
		return 0, 0, domain.ErrMissingSender
	}
	if len(ev.RecipientIDs) == 0 {
		span.RecordError(domain.ErrNoRecipients)
		return 0, 0, domain.ErrNoRecipients
	}
	if ev.Kind == "" {
		ev.Kind = "message"
	}

	for _, recipient := range ev.RecipientIDs {
		if recipient == ev.SenderID {
			continue
		}
		if !s.presence.ShouldNotify(recipient, ev.RoomID) {
			suppressed++
			s.log.DebugContext(ctx, "notifications - dispatch - suppressed, recipient is viewing the room",
				logging.User(recipient), logging.Room(ev.RoomID))
			continue
		}
		n := &domain.Notification{
			ID:          uuid.New(),
			RecipientID: recipient,
			RoomID:      ev.RoomID,
			SenderID:    ev.SenderID,
			Kind:        ev.Kind,
			Preview:     ev.Preview,
			CreatedAt:   time.Now(),
		}
		if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
			return s.repo.Insert(txCtx, n)
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inbox insert failed")
			s.log.ErrorContext(ctx, "notifications - dispatch - inbox insert failed",
				logging.User(recipient), logging.Notification(n.ID.String()), logging.Err(err))
			return queued, suppressed, err
		}
		raw, _ := json.Marshal(n)
		if err := s.queue.Publish(ctx, raw); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "queue publish failed")
			s.log.ErrorContext(ctx, "notifications - dispatch - queue publish failed",
				logging.User(recipient), logging.Notification(n.ID.String()), logging.Err(err))
			return queued, suppressed, err
		}
		queued++
	}
	span.SetAttributes(
		attribute.Int("queued", queued),
		attribute.Int("suppressed", suppressed),
	)
	s.log.InfoContext(ctx, "notifications - dispatch - event routed",
		logging.Room(ev.RoomID), "queued", queued, "suppressed", suppressed)
	return queued, suppressed, nil
}

// Inbox returns the caller's undelivered notifications, oldest first.
func (s *NotificationService) Inbox(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.repo.ListPending(ctx, userID, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "notifications - inbox - list pending failed",
			logging.User(userID), logging.Err(err))
		return nil, err
	}
	return items, nil
}

// MarkDelivered flips the inbox row once the worker pushed it to a live
// connection.
func (s *NotificationService) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.MarkDelivered(txCtx, id)
	})
}
