package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"calendar_bot/internal/domain"
)

type NotificationLog struct {
	db *sqlx.DB
}

func NewNotificationLog(db *sqlx.DB) *NotificationLog {
	return &NotificationLog{db: db}
}

func (l *NotificationLog) Record(ctx context.Context, rec *domain.DeliveryRecord) error {
	query := `
		INSERT INTO notification_log (poller, destination, item_id, status, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := GetExecutor(ctx, l.db).QueryRowxContext(ctx, query,
		rec.Poller,
		rec.Destination,
		rec.ItemID,
		rec.Status,
		rec.Error,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}
