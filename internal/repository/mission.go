package repository

import (
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrMissionNotFound = errors.New("mission not found")
	// ErrMissionStateChanged means the stored status no longer matches the expected one.
	ErrMissionStateChanged = errors.New("mission status changed")
)

type MissionRepository interface {
	Create(mission *model.Mission) error
	ByID(id string) (*model.Mission, error)
	Update(mission *model.Mission, expectedStatus string) error
	Delete(id, expectedStatus string) error
	AssignedTo(userID string) ([]*model.Mission, error)
	SentBy(userID string, statuses ...string) ([]*model.Mission, error)
}

type missionRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewMissionRepository(db *sqlx.DB, dialect goqu.DialectWrapper) MissionRepository {
	return &missionRepository{db: db, dialect: dialect}
}

func (r *missionRepository) Create(mission *model.Mission) error {
	query := `INSERT INTO missions (id, from_user_id, to_user_id, title, description, deadline, reward, status, proof_path, created_at, accepted_at, submitted_at, completed_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(query,
		mission.ID,
		mission.FromUserID,
		mission.ToUserID,
		mission.Title,
		mission.Description,
		mission.Deadline,
		mission.Reward,
		mission.Status,
		mission.ProofPath,
		mission.CreatedAt,
		mission.AcceptedAt,
		mission.SubmittedAt,
		mission.CompletedAt,
	)

	return err
}

func (r *missionRepository) ByID(id string) (*model.Mission, error) {
	mission := &model.Mission{}
	err := r.db.Get(mission, `SELECT * FROM missions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrMissionNotFound
	}
	if err != nil {
		return nil, err
	}

	return mission, nil
}

// Update writes the lifecycle fields only if the row still carries expectedStatus.
func (r *missionRepository) Update(mission *model.Mission, expectedStatus string) error {
	query := `UPDATE missions
	          SET status = $1, proof_path = $2, accepted_at = $3, submitted_at = $4, completed_at = $5
	          WHERE id = $6 AND status = $7`

	result, err := r.db.Exec(query,
		mission.Status,
		mission.ProofPath,
		mission.AcceptedAt,
		mission.SubmittedAt,
		mission.CompletedAt,
		mission.ID,
		expectedStatus,
	)
	if err != nil {
		return err
	}

	return expectRows(result, ErrMissionStateChanged)
}

func (r *missionRepository) Delete(id, expectedStatus string) error {
	result, err := r.db.Exec(`DELETE FROM missions WHERE id = $1 AND status = $2`, id, expectedStatus)
	if err != nil {
		return err
	}

	return expectRows(result, ErrMissionStateChanged)
}

// AssignedTo lists every mission addressed to the owner, newest first.
func (r *missionRepository) AssignedTo(userID string) ([]*model.Mission, error) {
	ds := r.dialect.From("missions").Prepared(true).
		Where(goqu.C("to_user_id").Eq(userID)).
		Order(goqu.C("created_at").Desc())

	return r.selectMissions(ds)
}

// SentBy lists missions a supporter created, optionally restricted to statuses.
func (r *missionRepository) SentBy(userID string, statuses ...string) ([]*model.Mission, error) {
	ds := r.dialect.From("missions").Prepared(true).
		Where(goqu.C("from_user_id").Eq(userID)).
		Order(goqu.C("created_at").Desc())
	if len(statuses) > 0 {
		ds = ds.Where(goqu.C("status").In(statuses))
	}

	return r.selectMissions(ds)
}

func (r *missionRepository) selectMissions(ds *goqu.SelectDataset) ([]*model.Mission, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var missions []*model.Mission
	err = r.db.Select(&missions, query, args...)
	if err != nil {
		return nil, err
	}

	return missions, nil
}
