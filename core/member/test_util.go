package member

import (
	"context"

	"github.com/secmun/podium/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose async pieces run synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			conf:    conf,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	mbr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(mbr)
	return nil
}
