package model

import "time"

const FriendRequestStatusPending = "pending"

type FriendRequest struct {
	ID           string    `db:"id" json:"id"`
	FromUserID   string    `db:"from_user_id" json:"from"`
	ToUserID     string    `db:"to_user_id" json:"to"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	FromUsername string    `db:"from_username" json:"username,omitempty"`
}

// Friend is one side of a symmetric friendship, joined with the friend's profile.
type Friend struct {
	UserID    string    `db:"friend_id" json:"id"`
	Username  string    `db:"username" json:"username"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Challenger is a friend's goal progress as shown to a supporter.
type Challenger struct {
	UserID          string      `json:"id"`
	Username        string      `json:"username"`
	GoalName        string      `json:"goal_name,omitempty"`
	LastCompletedAt *time.Time  `json:"last_completed_at,omitempty"`
	DoneToday       bool        `json:"done_today"`
	ShareMilestones bool        `json:"share_milestones"`
	Milestones      []Milestone `json:"milestones"`
	HistoryCount    int         `json:"history_count"`
	Rank            string      `json:"rank"`
}
