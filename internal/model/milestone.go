package model

import (
	"fmt"
	"time"
)

// MilestoneCount is the fixed number of milestones generated for every goal.
const MilestoneCount = 7

type Milestone struct {
	UserID      string     `db:"user_id" json:"-"`
	ID          int        `db:"id" json:"id"`
	Description string     `db:"description" json:"description"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// NewMilestones returns the placeholder batch for a fresh goal.
func NewMilestones(userID string) []Milestone {
	milestones := make([]Milestone, 0, MilestoneCount)
	for i := 1; i <= MilestoneCount; i++ {
		milestones = append(milestones, Milestone{
			UserID:      userID,
			ID:          i,
			Description: PlaceholderDescription(i),
		})
	}
	return milestones
}

func PlaceholderDescription(id int) string {
	return fmt.Sprintf("Milestone %d", id)
}
