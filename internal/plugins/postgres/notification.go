package postgres

import (
	"context"
	"database/sql"
	"lookout/internal/core/domain"

	"github.com/google/uuid"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{
		db: db,
	}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
        INSERT INTO notifications (
            id, recipient_id, room_id, sender_id, kind, preview, created_at
        ) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
    `,
		n.ID,
		n.RecipientID,
		n.RoomID,
		n.SenderID,
		n.Kind,
		n.Preview,
		n.CreatedAt,
	)
	return err
}

func (r *NotificationRepo) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	exec := GetExecutor(ctx, r.db)
	res, err := exec.ExecContext(ctx, `
        UPDATE notifications
        SET delivered_at = now()
        WHERE id = $1 AND delivered_at IS NULL
    `, id)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepo) ListPending(
	ctx context.Context,
	recipientID string,
	limit int,
) ([]domain.Notification, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, recipient_id, COALESCE(room_id, ''), sender_id, kind, preview, created_at, delivered_at
		FROM notifications
		WHERE recipient_id = $1
		AND delivered_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.RoomID,
			&n.SenderID,
			&n.Kind,
			&n.Preview,
			&n.CreatedAt,
			&n.DeliveredAt,
		); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
