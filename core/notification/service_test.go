package notification_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
	pushsvc "github.com/secmun/podium/services/push"
	dummydb "github.com/secmun/podium/storage/database/dummy"
)

var ctx = context.Background()

func newService(t *testing.T) notification.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	pushsvc.ClearSentMessages()
	return notification.NewServiceMock(dummydb.NewNotificationRepository(db), pushsvc.NewConsoleServiceMock())
}

func Test_service_Announce(t *testing.T) {
	svc := newService(t)
	sender := member.Member{ID: "sec-gen"}

	notif, err := svc.Announce(ctx, notification.NewAnnouncement{
		Title: "General Assembly",
		Body:  "This Friday at 16:00.",
	}, sender)
	require.NoError(t, err)
	assert.Equal(t, notification.DefaultTopic, notif.Topic) // empty topic falls back
	assert.Equal(t, sender.ID, notif.SentBy)
	assert.False(t, notif.SentAt.IsZero())

	// the mock delivers the push synchronously
	require.Len(t, pushsvc.SentMessages, 1)
	msg := pushsvc.SentMessages[0]
	assert.Equal(t, notif.Title, msg.Title)
	assert.Equal(t, notification.DefaultTopic, msg.Topic)

	// a custom topic is preserved
	notif, err = svc.Announce(ctx, notification.NewAnnouncement{
		Title: "Finance Update",
		Body:  "Budget approved.",
		Topic: "secretariat",
	}, sender)
	require.NoError(t, err)
	assert.Equal(t, "secretariat", notif.Topic)
}

func Test_service_Recent(t *testing.T) {
	svc := newService(t)
	sender := member.Member{ID: "sec-gen"}

	for i := 0; i < 60; i++ {
		_, err := svc.Announce(ctx, notification.NewAnnouncement{
			Title: fmt.Sprintf("Announcement %d", i),
			Body:  "body",
		}, sender)
		require.NoError(t, err)
	}

	notifs, err := svc.Recent(ctx)
	require.NoError(t, err)
	assert.Len(t, notifs, 50) // the feed is capped

	// newest first
	for i := 1; i < len(notifs); i++ {
		assert.False(t, notifs[i].SentAt.After(notifs[i-1].SentAt))
	}
}
