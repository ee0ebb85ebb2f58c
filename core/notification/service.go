package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	CreateNotification(ctx context.Context, notif Notification) error
	QueryRecentNotifications(ctx context.Context, limit int) ([]Notification, error)
}

type Service interface {
	Announce(ctx context.Context, na NewAnnouncement, sender member.Member) (Notification, error)
	Recent(ctx context.Context) ([]Notification, error)
}

type service struct {
	repo    Repository
	pushSvc core.PushService
}

var _ Service = (*service)(nil)

const recentLimit = 50

func NewService(repo Repository, pushSvc core.PushService) *service {
	return &service{repo: repo, pushSvc: pushSvc}
}

func (svc *service) Announce(ctx context.Context, na NewAnnouncement, sender member.Member) (Notification, error) {
	notif, msg, err := svc.announce(ctx, na, sender)
	if err != nil {
		return Notification{}, err
	}
	go svc.pushSvc.SendMessages(msg)
	return notif, nil
}

func (svc *service) announce(ctx context.Context, na NewAnnouncement, sender member.Member) (Notification, *core.PushMessage, error) {
	topic := na.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	notif := Notification{
		ID:     uuid.New().String(),
		Title:  na.Title,
		Body:   na.Body,
		Topic:  topic,
		SentBy: sender.ID,
		SentAt: time.Now().UTC(),
	}
	if err := svc.repo.CreateNotification(ctx, notif); err != nil {
		return Notification{}, nil, errors.Wrap(err, "persisting announcement")
	}

	msg := &core.PushMessage{
		Title: notif.Title,
		Body:  notif.Body,
		Topic: notif.Topic,
		Data:  map[string]string{"notification_id": notif.ID},
	}
	return notif, msg, nil
}

func (svc *service) Recent(ctx context.Context) ([]Notification, error) {
	return svc.repo.QueryRecentNotifications(ctx, recentLimit)
}
