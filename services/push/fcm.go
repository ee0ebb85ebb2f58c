package pushsvc

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/secmun/podium/core"
)

type fcmService struct {
	client *messaging.Client
	logger core.Logger
}

var _ core.PushService = (*fcmService)(nil)

func NewFCMService(ctx context.Context, conf *core.Config, logger core.Logger) (*fcmService, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.FCMCredentials))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &fcmService{client: client, logger: logger}, nil
}

func (svc fcmService) SendMessages(messages ...*core.PushMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if !msg.HasTarget() {
				svc.logger.Warn(fmt.Sprintf("push message %q has no target; dropping", msg.Title))
				return
			}
			if _, err := svc.client.Send(context.Background(), svc.prepare(msg)); err != nil {
				svc.logger.Error(fmt.Sprintf("sending push message: %v", err), err)
			}
		}()
	}
}

func (svc fcmService) prepare(msg *core.PushMessage) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:  msg.Data,
		Topic: msg.Topic,
		Token: msg.Token,
	}
}
