package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrHistoryNotFound   = errors.New("history entry not found")
)

type GoalRepository interface {
	ByUserID(userID string) (*model.Goal, error)
	Replace(goal *model.Goal, archive *model.PastGoal) error
	InitMilestones(userID string, milestones []model.Milestone) error
	AppendProof(userID string, entry *model.ProofEntry) error
	UpdateMilestoneDescription(userID string, id int, description string) error
	CompleteMilestone(userID string, id int, at time.Time) error
	MarkCompleted(userID string, at time.Time) error
	DeleteHistory(userID, id string) error
	Delete(userID string) error
	ActiveOwnersWithoutProofSince(since time.Time) ([]string, error)
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

// ByUserID loads the live goal with its milestones and history.
func (r *goalRepository) ByUserID(userID string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := r.db.Get(goal, `SELECT * FROM goals WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	err = r.db.Select(&goal.Milestones, `SELECT * FROM milestones WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}

	err = r.db.Select(&goal.History, `SELECT * FROM goal_history WHERE user_id = $1 ORDER BY completed_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return goal, nil
}

// Replace archives the previous goal (when archive is set) and overwrites the live goal in one transaction.
func (r *goalRepository) Replace(goal *model.Goal, archive *model.PastGoal) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if archive != nil {
		_, err = tx.Exec(`INSERT INTO past_goals (id, user_id, name, description, status, created_at, last_completed_at, completed_at, archived_at, milestones, history)
		                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			archive.ID, archive.UserID, archive.Name, archive.Description, archive.Status,
			archive.CreatedAt.UTC(), utcPtr(archive.LastCompletedAt), utcPtr(archive.CompletedAt), archive.ArchivedAt.UTC(),
			archive.Milestones, archive.History,
		)
		if err != nil {
			return fmt.Errorf("failed to archive goal: %w", err)
		}
	}

	for _, stmt := range []string{
		`DELETE FROM goal_history WHERE user_id = $1`,
		`DELETE FROM milestones WHERE user_id = $1`,
		`DELETE FROM goals WHERE user_id = $1`,
	} {
		_, err = tx.Exec(stmt, goal.UserID)
		if err != nil {
			return fmt.Errorf("failed to clear live goal: %w", err)
		}
	}

	_, err = tx.Exec(`INSERT INTO goals (user_id, name, description, status, last_completed_at, completed_at, created_at, updated_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		goal.UserID, goal.Name, goal.Description, goal.Status,
		utcPtr(goal.LastCompletedAt), utcPtr(goal.CompletedAt), goal.CreatedAt.UTC(), goal.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}

	err = insertMilestones(tx, goal.UserID, goal.Milestones)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// InitMilestones backfills the placeholder batch for a goal stored without milestones.
func (r *goalRepository) InitMilestones(userID string, milestones []model.Milestone) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = insertMilestones(tx, userID, milestones)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertMilestones(tx *sqlx.Tx, userID string, milestones []model.Milestone) error {
	query := `INSERT INTO milestones (user_id, id, description, completed, completed_at)
	          VALUES ($1, $2, $3, $4, $5)`

	for _, m := range milestones {
		_, err := tx.Exec(query, userID, m.ID, m.Description, m.Completed, utcPtr(m.CompletedAt))
		if err != nil {
			return fmt.Errorf("failed to create milestone %d: %w", m.ID, err)
		}
	}
	return nil
}

// AppendProof records a daily completion and stamps the goal's last completion time.
func (r *goalRepository) AppendProof(userID string, entry *model.ProofEntry) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE goals SET last_completed_at = $1, updated_at = $2 WHERE user_id = $3`,
		entry.CompletedAt.UTC(), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	err = expectRows(result, ErrGoalNotFound)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO goal_history (id, user_id, completed_at, storage_path)
	                  VALUES ($1, $2, $3, $4)`,
		entry.ID, userID, entry.CompletedAt.UTC(), entry.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return tx.Commit()
}

// UpdateMilestoneDescription only touches incomplete milestones.
func (r *goalRepository) UpdateMilestoneDescription(userID string, id int, description string) error {
	result, err := r.db.Exec(`UPDATE milestones SET description = $1
	                          WHERE user_id = $2 AND id = $3 AND completed = false`,
		description, userID, id)
	if err != nil {
		return err
	}

	return expectRows(result, ErrMilestoneNotFound)
}

func (r *goalRepository) CompleteMilestone(userID string, id int, at time.Time) error {
	result, err := r.db.Exec(`UPDATE milestones SET completed = true, completed_at = $1
	                          WHERE user_id = $2 AND id = $3`,
		at.UTC(), userID, id)
	if err != nil {
		return err
	}

	return expectRows(result, ErrMilestoneNotFound)
}

func (r *goalRepository) MarkCompleted(userID string, at time.Time) error {
	result, err := r.db.Exec(`UPDATE goals SET status = $1, completed_at = $2, updated_at = $3
	                          WHERE user_id = $4 AND status = $5`,
		model.GoalStatusCompleted, at.UTC(), time.Now().UTC(), userID, model.GoalStatusActive)
	if err != nil {
		return err
	}

	return expectRows(result, ErrGoalNotFound)
}

func (r *goalRepository) DeleteHistory(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM goal_history WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}

	return expectRows(result, ErrHistoryNotFound)
}

func (r *goalRepository) Delete(userID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM goal_history WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`DELETE FROM milestones WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	result, err := tx.Exec(`DELETE FROM goals WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	err = expectRows(result, ErrGoalNotFound)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ActiveOwnersWithoutProofSince lists owners of active goals with no proof at or after since.
func (r *goalRepository) ActiveOwnersWithoutProofSince(since time.Time) ([]string, error) {
	var userIDs []string
	err := r.db.Select(&userIDs, `SELECT user_id FROM goals
	                              WHERE status = $1 AND (last_completed_at IS NULL OR last_completed_at < $2)`,
		model.GoalStatusActive, since.UTC())
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// utcPtr normalises a stored timestamp. SQLite keeps times as text, so every
// row must share one zone for comparisons and ORDER BY to follow time order.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
