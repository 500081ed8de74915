package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/withyou-app/withyou/internal/validation"
)

// Mailer sends the transactional emails the app needs.
type Mailer interface {
	SendFriendRequestEmail(ctx context.Context, email, fromName string) error
	SendMissionReceivedEmail(ctx context.Context, email, fromName, title string) error
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendFriendRequestEmail(ctx context.Context, email, fromName string) error {
	profileURL := fmt.Sprintf("%s/profile", s.appURL)
	subject, body := friendRequestEmailTemplate(fromName, profileURL, s.appName)
	return s.send(ctx, "friend_request", email, subject, body)
}

func (s *EmailService) SendMissionReceivedEmail(ctx context.Context, email, fromName, title string) error {
	challengerURL := fmt.Sprintf("%s/challenger", s.appURL)
	subject, body := missionReceivedEmailTemplate(fromName, title, challengerURL, s.appName)
	return s.send(ctx, "mission_received", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, email, subject, body string) error {
	err := validation.ValidateEmail(email)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", email, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err = s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", email)
	}
	return err
}
