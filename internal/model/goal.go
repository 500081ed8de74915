package model

import (
	"time"
)

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
)

type Goal struct {
	UserID          string       `db:"user_id" json:"user_id"`
	Name            string       `db:"name" json:"name"`
	Description     string       `db:"description" json:"description"`
	Status          string       `db:"status" json:"status"`
	LastCompletedAt *time.Time   `db:"last_completed_at" json:"last_completed_at"`
	CompletedAt     *time.Time   `db:"completed_at" json:"completed_at"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
	Milestones      []Milestone  `db:"-" json:"milestones"`
	History         []ProofEntry `db:"-" json:"history"`
}

// AllMilestonesCompleted is false for a goal whose milestones were never initialised.
func (g *Goal) AllMilestonesCompleted() bool {
	if len(g.Milestones) == 0 {
		return false
	}
	for _, m := range g.Milestones {
		if !m.Completed {
			return false
		}
	}
	return true
}

func (g *Goal) Milestone(id int) *Milestone {
	for i := range g.Milestones {
		if g.Milestones[i].ID == id {
			return &g.Milestones[i]
		}
	}
	return nil
}

// CompletedOn reports whether the last proof falls on the same calendar day as now in loc.
func (g *Goal) CompletedOn(now time.Time, loc *time.Location) bool {
	if g.LastCompletedAt == nil {
		return false
	}
	return SameDay(*g.LastCompletedAt, now, loc)
}

// ProofEntry is one daily completion in a goal's history. Only StoragePath is
// persisted; ProofURL is resolved from it whenever the entry is served.
type ProofEntry struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"-"`
	CompletedAt time.Time `db:"completed_at" json:"date"`
	StoragePath string    `db:"storage_path" json:"-"`
	ProofURL    string    `db:"-" json:"url"`
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats t as the YYYY-MM-DD day key used for boosts.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

const ActivitySourceCurrent = "current"

// ActivityItem is a history entry tagged with the goal it belongs to.
type ActivityItem struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	URL    string    `json:"url"`
	Source string    `json:"source"`
}
