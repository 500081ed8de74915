package service

import (
	"context"
	"fmt"
	"time"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/repository"
)

const reminderMessage = "Don't forget to complete today's goal!"

// ReminderService nudges owners who have an active goal but no proof today.
type ReminderService struct {
	goalRepo repository.GoalRepository
	notifier Notifier
	appName  string
	loc      *time.Location
	now      func() time.Time
}

func NewReminderService(goalRepo repository.GoalRepository, notifier Notifier, appName string, loc *time.Location) *ReminderService {
	return &ReminderService{
		goalRepo: goalRepo,
		notifier: notifier,
		appName:  appName,
		loc:      loc,
		now:      utcNow,
	}
}

// Run returns the number of owners reminded.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	owners, err := s.goalRepo.ActiveOwnersWithoutProofSince(startOfDay(s.now(), s.loc))
	if err != nil {
		return 0, fmt.Errorf("failed to find owners to remind: %w", err)
	}

	if len(owners) == 0 {
		return 0, nil
	}

	s.notifier.NotifyAll(ctx, owners, model.Notification{
		FromName: s.appName,
		Type:     model.NotificationDailyReminder,
		Message:  reminderMessage,
	})

	return len(owners), nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
