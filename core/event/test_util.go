package event

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

func NewServiceMock(repo Repository, pushSvc core.PushService, logger core.Logger, conf *core.Config) *serviceMock {
	return &serviceMock{
		service: service{
			repo:    repo,
			pushSvc: pushSvc,
			logger:  logger,
			conf:    conf,
		},
	}
}

func (svc *serviceMock) Decide(ctx context.Context, regID string, dec Decision, decider member.Member) (Registration, error) {
	reg, evt, err := svc.decide(ctx, regID, dec, decider)
	if err != nil {
		return Registration{}, err
	}
	svc.notifyDecision(evt, reg)
	return reg, nil
}
