package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrPastGoalNotFound = errors.New("past goal not found")
)

type PastGoalRepository interface {
	PastGoals(userID string) ([]*model.PastGoal, error)
	ByID(userID, id string) (*model.PastGoal, error)
	UpdateHistory(userID, id string, history model.ProofList) error
	Delete(userID, id string) error
}

type pastGoalRepository struct {
	db *sqlx.DB
}

func NewPastGoalRepository(db *sqlx.DB) PastGoalRepository {
	return &pastGoalRepository{db: db}
}

// PastGoals returns archived goals, most recently completed first.
func (r *pastGoalRepository) PastGoals(userID string) ([]*model.PastGoal, error) {
	var goals []*model.PastGoal
	query := `SELECT * FROM past_goals WHERE user_id = $1
	          ORDER BY CASE WHEN completed_at IS NULL THEN 1 ELSE 0 END, completed_at DESC, archived_at DESC`

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *pastGoalRepository) ByID(userID, id string) (*model.PastGoal, error) {
	goal := &model.PastGoal{}
	err := r.db.Get(goal, `SELECT * FROM past_goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err == sql.ErrNoRows {
		return nil, ErrPastGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (r *pastGoalRepository) UpdateHistory(userID, id string, history model.ProofList) error {
	result, err := r.db.Exec(`UPDATE past_goals SET history = $1 WHERE id = $2 AND user_id = $3`, history, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrPastGoalNotFound)
}

func (r *pastGoalRepository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM past_goals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrPastGoalNotFound)
}
