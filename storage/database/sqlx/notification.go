package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/notification"
)

type notificationRow struct {
	ID     string    `db:"id"`
	Title  string    `db:"title"`
	Body   string    `db:"body"`
	Topic  string    `db:"topic"`
	SentBy string    `db:"sent_by"`
	SentAt time.Time `db:"sent_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) error {
	q := `INSERT INTO notification (id, title, body, topic, sent_by, sent_at)
VALUES (:id, :title, :body, :topic, :sent_by, :sent_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, notificationRow(notif)); err != nil {
		return errors.Wrap(err, "inserting notification")
	}
	return nil
}

func (repo *notificationRepository) QueryRecentNotifications(ctx context.Context, limit int) ([]notification.Notification, error) {
	var rows []notificationRow
	q := `SELECT id, title, body, topic, sent_by, sent_at FROM notification
ORDER BY sent_at DESC LIMIT $1`
	if err := repo.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notif := notification.Notification(row)
		notif.SentAt = notif.SentAt.UTC()
		notifs = append(notifs, notif)
	}
	return notifs, nil
}
