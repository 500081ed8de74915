package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/push"
	"github.com/withyou-app/withyou/internal/repository"
)

type fakeSender struct {
	tokens   []string
	messages []push.Message
	stale    []string
	err      error
}

func (s *fakeSender) Send(ctx context.Context, tokens []string, msg push.Message) ([]string, error) {
	s.tokens = append(s.tokens, tokens...)
	s.messages = append(s.messages, msg)
	return s.stale, s.err
}

type notificationFixture struct {
	svc       *NotificationService
	repo      *fakeNotificationRepo
	tokens    *fakeDeviceTokenRepo
	sender    *fakeSender
	publisher *recordingPublisher
}

func newNotificationFixture() *notificationFixture {
	f := &notificationFixture{
		repo:      &fakeNotificationRepo{},
		tokens:    newFakeDeviceTokenRepo(),
		sender:    &fakeSender{},
		publisher: &recordingPublisher{},
	}
	f.svc = NewNotificationService(f.repo, f.tokens, f.sender, f.publisher, "WithYou")
	return f
}

func TestNotificationService_Notify(t *testing.T) {
	tests := []struct {
		name      string
		devices   []string
		stale     []string
		sendErr   error
		pushed    int
		remaining int
	}{
		{name: "no devices", pushed: 0},
		{name: "pushes to every device", devices: []string{"t1", "t2"}, pushed: 2, remaining: 2},
		{name: "forgets stale tokens", devices: []string{"t1", "t2"}, stale: []string{"t2"}, pushed: 2, remaining: 1},
		{name: "push failure is swallowed", devices: []string{"t1"}, sendErr: errBoom, pushed: 1, remaining: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNotificationFixture()
			for _, token := range tt.devices {
				require.NoError(t, f.svc.RegisterDevice("u2", token, "iOS"))
			}
			f.sender.stale = tt.stale
			f.sender.err = tt.sendErr

			n := &model.Notification{ToUserID: "u2", FromUserID: "u1", FromName: "alice", Type: model.NotificationDailyCompletion, Message: "alice completed their daily goal!"}
			err := f.svc.Notify(context.Background(), n)

			require.NoError(t, err)
			assert.NotEmpty(t, n.ID)
			assert.False(t, n.Read)
			require.Len(t, f.repo.created, 1)
			assert.Equal(t, []pubsub.Event{{Topic: pubsub.TopicNotification, UserIDs: []string{"u2"}, ID: n.ID}}, f.publisher.events)
			assert.Len(t, f.sender.tokens, tt.pushed)
			assert.Len(t, f.tokens.tokens, tt.remaining)
			if tt.pushed > 0 {
				assert.Equal(t, "WithYou", f.sender.messages[0].Title)
				assert.Equal(t, n.Message, f.sender.messages[0].Body)
				assert.Equal(t, n.ID, f.sender.messages[0].Data["notification_id"])
			}
		})
	}
}

func TestNotificationService_NotifyRecordFailure(t *testing.T) {
	f := newNotificationFixture()
	f.repo.createErr = errBoom

	err := f.svc.Notify(context.Background(), &model.Notification{ToUserID: "u2"})

	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.publisher.events)
}

func TestNotificationService_NotifyAll(t *testing.T) {
	f := newNotificationFixture()

	f.svc.NotifyAll(context.Background(), []string{"a", "b", "c"}, model.Notification{FromUserID: "u1", Type: model.NotificationGoalCompletion})

	require.Len(t, f.repo.created, 3)
	assert.Equal(t, "a", f.repo.created[0].ToUserID)
	assert.Equal(t, "c", f.repo.created[2].ToUserID)
	assert.NotEqual(t, f.repo.created[0].ID, f.repo.created[1].ID)
}

func TestNotificationService_Feed(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()
	first := &model.Notification{ToUserID: "u2"}
	require.NoError(t, f.svc.Notify(ctx, first))
	require.NoError(t, f.svc.Notify(ctx, &model.Notification{ToUserID: "u2"}))
	require.NoError(t, f.svc.Notify(ctx, &model.Notification{ToUserID: "u3"}))

	count, err := f.svc.UnreadCount("u2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = f.svc.MarkRead("u3", first.ID)
	assert.ErrorIs(t, err, repository.ErrNotificationNotFound)

	require.NoError(t, f.svc.MarkRead("u2", first.ID))
	unread, err := f.svc.Notifications("u2", repository.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	require.NoError(t, f.svc.Delete("u2", first.ID))
	all, err := f.svc.Notifications("u2", repository.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	empty, err := f.svc.Notifications("nobody", repository.NotificationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestNotificationService_RegisterDevice(t *testing.T) {
	f := newNotificationFixture()

	err := f.svc.RegisterDevice("u1", "  ", "ios")
	assert.ErrorIs(t, err, ErrDeviceTokenRequired)

	require.NoError(t, f.svc.RegisterDevice("u1", "tok", " Android "))
	assert.Equal(t, "android", f.tokens.tokens["tok"].Platform)

	require.NoError(t, f.svc.RemoveDevice("u1", "tok"))
	assert.Empty(t, f.tokens.tokens)
}
