package notification

import (
	"context"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

// Mock service with synchronous push delivery.

type serviceMock struct {
	service
}

var _ Service = (*serviceMock)(nil)

func NewServiceMock(repo Repository, pushSvc core.PushService) *serviceMock {
	return &serviceMock{service: service{repo: repo, pushSvc: pushSvc}}
}

func (svc *serviceMock) Announce(ctx context.Context, na NewAnnouncement, sender member.Member) (Notification, error) {
	notif, msg, err := svc.announce(ctx, na, sender)
	if err != nil {
		return Notification{}, err
	}
	svc.pushSvc.SendMessages(msg)
	return notif, nil
}
