package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/push"
	"github.com/withyou-app/withyou/internal/repository"
)

var (
	ErrDeviceTokenRequired = errors.New("device token is required")
)

// Notifier delivers in-app notifications. NotifyAll never fails; it logs.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
	NotifyAll(ctx context.Context, recipients []string, template model.Notification)
}

type NotificationService struct {
	repo      repository.NotificationRepository
	tokenRepo repository.DeviceTokenRepository
	sender    push.Sender
	publisher pubsub.Publisher
	appName   string
}

func NewNotificationService(
	repo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	sender push.Sender,
	publisher pubsub.Publisher,
	appName string,
) *NotificationService {
	return &NotificationService{
		repo:      repo,
		tokenRepo: tokenRepo,
		sender:    sender,
		publisher: publisher,
		appName:   appName,
	}
}

// Notify stores the notification, wakes live feeds and pushes to the
// recipient's devices. Only the record write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) error {
	n.ID = uuid.New().String()
	n.Read = false
	n.CreatedAt = utcNow()

	err := s.repo.Create(n)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("record").Inc()
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.publisher.Publish(pubsub.Event{
		Topic:   pubsub.TopicNotification,
		UserIDs: []string{n.ToUserID},
		ID:      n.ID,
	})

	s.push(ctx, n)
	return nil
}

func (s *NotificationService) push(ctx context.Context, n *model.Notification) {
	tokens, err := s.tokenRepo.Tokens(n.ToUserID)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("push").Inc()
		slog.Error("failed to load device tokens", "error", err, "user_id", n.ToUserID)
		return
	}
	if len(tokens) == 0 {
		return
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stale, err := s.sender.Send(ctx, values, push.Message{
		Title: s.appName,
		Body:  n.Message,
		Data: map[string]string{
			"notification_id": n.ID,
			"type":            n.Type,
		},
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("push").Inc()
		slog.Error("failed to push notification", "error", err, "user_id", n.ToUserID, "type", n.Type)
		return
	}

	for _, token := range stale {
		err = s.tokenRepo.Delete(n.ToUserID, token)
		if err != nil {
			slog.Warn("failed to forget stale device token", "error", err, "user_id", n.ToUserID)
		}
	}
}

// NotifyAll sends the same message to every recipient, logging failures only.
func (s *NotificationService) NotifyAll(ctx context.Context, recipients []string, template model.Notification) {
	for _, to := range recipients {
		n := template
		n.ToUserID = to

		err := s.Notify(ctx, &n)
		if err != nil {
			slog.Error("failed to send notification", "error", err, "user_id", template.FromUserID, "to", to, "type", template.Type)
		}
	}
}

func (s *NotificationService) Notifications(userID string, filter repository.NotificationFilter) ([]*model.Notification, error) {
	notifications, err := s.repo.Notifications(userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(userID string) (int, error) {
	return s.repo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(userID, id string) error {
	err := s.repo.MarkRead(userID, id)
	if err != nil {
		return err
	}
	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicNotification, UserIDs: []string{userID}, ID: id})
	return nil
}

func (s *NotificationService) Delete(userID, id string) error {
	err := s.repo.Delete(userID, id)
	if err != nil {
		return err
	}
	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicNotification, UserIDs: []string{userID}, ID: id})
	return nil
}

func (s *NotificationService) RegisterDevice(userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrDeviceTokenRequired
	}

	return s.tokenRepo.Register(&model.DeviceToken{
		Token:    token,
		UserID:   userID,
		Platform: strings.ToLower(strings.TrimSpace(platform)),
	})
}

func (s *NotificationService) RemoveDevice(userID, token string) error {
	return s.tokenRepo.Delete(userID, token)
}
