package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	PastGoalStatusCompleted = "completed"
	PastGoalStatusAbandoned = "abandoned"
)

// PastGoal is an archived snapshot of a superseded goal.
type PastGoal struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"-"`
	Name            string        `db:"name" json:"name"`
	Description     string        `db:"description" json:"description"`
	Status          string        `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	LastCompletedAt *time.Time    `db:"last_completed_at" json:"last_completed_at"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at"`
	ArchivedAt      time.Time     `db:"archived_at" json:"archived_at"`
	Milestones      MilestoneList `db:"milestones" json:"milestones"`
	History         ProofList     `db:"history" json:"history"`
}

// ArchiveGoal copies g into a PastGoal. A goal that was not completed is archived as abandoned.
func ArchiveGoal(id string, g *Goal, archivedAt time.Time) *PastGoal {
	status := PastGoalStatusAbandoned
	if g.Status == GoalStatusCompleted {
		status = PastGoalStatusCompleted
	}
	return &PastGoal{
		ID:              id,
		UserID:          g.UserID,
		Name:            g.Name,
		Description:     g.Description,
		Status:          status,
		CreatedAt:       g.CreatedAt,
		LastCompletedAt: g.LastCompletedAt,
		CompletedAt:     g.CompletedAt,
		ArchivedAt:      archivedAt,
		Milestones:      MilestoneList(g.Milestones),
		History:         ProofList(g.History),
	}
}

type MilestoneList []Milestone

func (l MilestoneList) Value() (driver.Value, error) {
	if l == nil {
		l = MilestoneList{}
	}
	b, err := json.Marshal([]Milestone(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *MilestoneList) Scan(src any) error {
	return scanJSON(src, (*[]Milestone)(l))
}

type ProofList []ProofEntry

// storedProof is the column encoding of a ProofEntry. URLs are never stored.
type storedProof struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"date"`
	StoragePath string    `json:"storage_path"`
}

func (l ProofList) Value() (driver.Value, error) {
	stored := make([]storedProof, 0, len(l))
	for _, e := range l {
		stored = append(stored, storedProof{ID: e.ID, CompletedAt: e.CompletedAt.UTC(), StoragePath: e.StoragePath})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ProofList) Scan(src any) error {
	var stored []storedProof
	err := scanJSON(src, &stored)
	if err != nil {
		return err
	}

	list := make(ProofList, 0, len(stored))
	for _, e := range stored {
		list = append(list, ProofEntry{ID: e.ID, CompletedAt: e.CompletedAt, StoragePath: e.StoragePath})
	}
	*l = list
	return nil
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(v), dst)
	case []byte:
		return json.Unmarshal(v, dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
