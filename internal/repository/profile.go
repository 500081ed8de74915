package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
)

type ProfileRepository interface {
	ByUserID(userID string) (*model.Profile, error)
	Upsert(profile *model.Profile) error
	UpdateUsername(userID, username string) error
	UpdateShareMilestones(userID string, share bool) error
	SearchByUsername(prefix, excludeUserID string, limit int) ([]*model.Profile, error)
}

type profileRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewProfileRepository(db *sqlx.DB, dialect goqu.DialectWrapper) ProfileRepository {
	return &profileRepository{db: db, dialect: dialect}
}

func (r *profileRepository) ByUserID(userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.Get(&profile, `SELECT * FROM profiles WHERE user_id = $1`, userID)

	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// Upsert writes onboarding fields. The privacy flag is only set on first insert.
func (r *profileRepository) Upsert(profile *model.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO profiles (user_id, username, role, email, photo_url, share_milestones, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET username = excluded.username, role = excluded.role, email = excluded.email,
		    photo_url = excluded.photo_url, updated_at = excluded.updated_at
	`, profile.UserID, profile.Username, profile.Role, profile.Email, profile.PhotoURL,
		profile.ShareMilestones, profile.CreatedAt, profile.UpdatedAt)

	return err
}

func (r *profileRepository) UpdateUsername(userID, username string) error {
	result, err := r.db.Exec(`
		UPDATE profiles
		SET username = $1, updated_at = $2
		WHERE user_id = $3
	`, username, time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrProfileNotFound)
}

func (r *profileRepository) UpdateShareMilestones(userID string, share bool) error {
	result, err := r.db.Exec(`
		UPDATE profiles
		SET share_milestones = $1, updated_at = $2
		WHERE user_id = $3
	`, share, time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrProfileNotFound)
}

// SearchByUsername matches usernames starting with prefix as a range scan.
func (r *profileRepository) SearchByUsername(prefix, excludeUserID string, limit int) ([]*model.Profile, error) {
	ds := r.dialect.From("profiles").Prepared(true).
		Where(
			goqu.C("username").Gte(prefix),
			goqu.C("username").Lte(prefix+"\uf8ff"),
			goqu.C("user_id").Neq(excludeUserID),
		).
		Order(goqu.C("username").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var profiles []*model.Profile
	err = r.db.Select(&profiles, query, args...)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// expectRows maps a zero-row write to notFound.
func expectRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
