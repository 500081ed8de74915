package model

import "time"

const (
	NotificationDailyCompletion  = "daily_completion"
	NotificationGoalCompletion   = "goal_completion"
	NotificationMissionReceived  = "mission_received"
	NotificationMissionAccepted  = "mission_accepted"
	NotificationMissionSubmitted = "mission_submitted"
	NotificationMissionVerified  = "mission_verified"
	NotificationDailyReminder    = "daily_reminder"
)

type Notification struct {
	ID         string    `db:"id" json:"id"`
	ToUserID   string    `db:"to_user_id" json:"to"`
	FromUserID string    `db:"from_user_id" json:"from"`
	FromName   string    `db:"from_name" json:"from_name"`
	Type       string    `db:"type" json:"type"`
	Message    string    `db:"message" json:"message"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
