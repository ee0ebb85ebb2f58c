package dummydb

import (
	"context"
	"sort"

	"github.com/secmun/podium/core/notification"
)

type notificationRepository struct {
	notifications *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{notifications: db.notification}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) error {
	repo.notifications.Lock()
	defer repo.notifications.Unlock()
	if notif.ID == "" {
		return errEmptyID
	}
	repo.notifications.table[notif.ID] = &notif
	return nil
}

func (repo *notificationRepository) QueryRecentNotifications(ctx context.Context, limit int) ([]notification.Notification, error) {
	repo.notifications.RLock()
	defer repo.notifications.RUnlock()

	notifs := make([]notification.Notification, 0, len(repo.notifications.table))
	for _, notif := range repo.notifications.table {
		notifs = append(notifs, *notif)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].SentAt.After(notifs[j].SentAt) })
	if len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}
