package model

import "time"

const (
	MissionStatusPending   = "pending"
	MissionStatusOnGoing   = "on-going"
	MissionStatusVerifying = "verifying"
	MissionStatusCompleted = "completed"
	// MissionStatusDenied is never written; rows carrying it are read as on-going.
	MissionStatusDenied    = "denied"
	MissionStatusCancelled = "cancelled"
)

type Mission struct {
	ID          string     `db:"id" json:"id"`
	FromUserID  string     `db:"from_user_id" json:"from"`
	ToUserID    string     `db:"to_user_id" json:"to"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Deadline    time.Time  `db:"deadline" json:"deadline"`
	Reward      string     `db:"reward" json:"reward"`
	Status      string     `db:"status" json:"status"`
	ProofPath   *string    `db:"proof_path" json:"-"`
	ProofURL    *string    `db:"-" json:"proof_url"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Expired is informational only; it never drives a status change.
func (m *Mission) Expired(now time.Time) bool {
	return !m.Deadline.IsZero() && m.Deadline.Before(now)
}

// Active reports whether the mission still belongs on the owner's wanted board.
func (m *Mission) Active() bool {
	return m.Status != MissionStatusCompleted && m.Status != MissionStatusCancelled
}

// AwaitingSupporter reports whether the mission shows on the supporter's board.
func (m *Mission) AwaitingSupporter() bool {
	switch m.Status {
	case MissionStatusPending, MissionStatusOnGoing, MissionStatusVerifying:
		return true
	}
	return false
}

// MissionView adds read-time fields to a mission.
type MissionView struct {
	*Mission
	Expired bool `json:"expired"`
}
