package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message to device tokens and reports the tokens FCM
// no longer recognises so callers can forget them.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) (stale []string, err error)
}

type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, app *firebase.App) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast: %w", err)
	}

	var stale []string
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			stale = append(stale, tokens[i])
			continue
		}
		slog.Warn("push delivery failed", "error", r.Error)
	}

	slog.Debug("push sent", "success", resp.SuccessCount, "failure", resp.FailureCount)
	return stale, nil
}

// NoopSender is used when Firebase is not configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	if len(tokens) > 0 {
		slog.Debug("push disabled, dropping message", "title", msg.Title, "tokens", len(tokens))
	}
	return nil, nil
}
