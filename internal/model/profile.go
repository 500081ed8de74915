package model

import "time"

const (
	RoleChallenger = "challenger"
	RoleMotivator  = "motivator"
)

type Profile struct {
	UserID          string    `db:"user_id" json:"user_id"`
	Username        string    `db:"username" json:"username"`
	Role            string    `db:"role" json:"role"`
	Email           string    `db:"email" json:"email,omitempty"`
	PhotoURL        string    `db:"photo_url" json:"photo_url,omitempty"`
	ShareMilestones bool      `db:"share_milestones" json:"share_milestones"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Onboarded reports whether the profile carries both a username and a role.
func (p *Profile) Onboarded() bool {
	return p != nil && p.Username != "" && p.Role != ""
}

// DisplayName falls back to the given label when no username is set.
func (p *Profile) DisplayName(fallback string) string {
	if p == nil || p.Username == "" {
		return fallback
	}
	return p.Username
}

func ValidRole(role string) bool {
	return role == RoleChallenger || role == RoleMotivator
}
