package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const notificationStream = "stream:notifications"

// NotificationQueue is a Redis-stream implementation of
// contracts.NotificationQueue. One shared stream carries all routed
// notifications; the delivery worker consumes it through a consumer group.
type NotificationQueue struct {
	rdb *redis.Client
}

func NewNotificationQueue(rdb *redis.Client) *NotificationQueue {
	return &NotificationQueue{rdb: rdb}
}

func (q *NotificationQueue) Publish(ctx context.Context, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: notificationStream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

// Subscribe blocks in a consumer-group read loop until ctx is cancelled.
func (q *NotificationQueue) Subscribe(
	ctx context.Context,
	group string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	err := q.rdb.XGroupCreateMkStream(ctx, notificationStream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumerName,
				Streams:  []string{notificationStream, ">"},
				Count:    16,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					slog.Warn("redis queue - subscribe - stream read error", "error", err)
				}
				continue
			}
			for _, stream := range res {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
						slog.Warn("redis queue - subscribe - handler error", "message_id", msg.ID, "error", err)
					}
				}
			}
		}
	}
}

func (q *NotificationQueue) Acknowledge(ctx context.Context, group, messageID string) error {
	return q.rdb.XAck(ctx, notificationStream, group, messageID).Err()
}

func (q *NotificationQueue) Delete(ctx context.Context, messageID string) error {
	return q.rdb.XDel(ctx, notificationStream, messageID).Err()
}
