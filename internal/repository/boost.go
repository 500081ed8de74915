package repository

import (
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

var (
	ErrBoostNotFound = errors.New("boost not found")
)

type BoostRepository interface {
	Create(boost *model.Boost) error
	ByID(id string) (*model.Boost, error)
	SetSaved(userID, id string, saved bool) error
	ForDate(userID, date string) ([]*model.Boost, error)
	Saved(userID string) ([]*model.Boost, error)
	DeleteUnsaved(userID string) (int64, error)
}

type boostRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewBoostRepository(db *sqlx.DB, dialect goqu.DialectWrapper) BoostRepository {
	return &boostRepository{db: db, dialect: dialect}
}

func (r *boostRepository) Create(boost *model.Boost) error {
	query := `INSERT INTO boosts (id, from_user_id, to_user_id, date, type, motivation_message, congrats_message, image_path, saved, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		boost.ID,
		boost.FromUserID,
		boost.ToUserID,
		boost.Date,
		boost.Type,
		boost.MotivationMessage,
		boost.CongratsMessage,
		boost.ImagePath,
		boost.Saved,
		boost.CreatedAt,
	)

	return err
}

func (r *boostRepository) ByID(id string) (*model.Boost, error) {
	boost := &model.Boost{}
	err := r.db.Get(boost, `SELECT * FROM boosts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrBoostNotFound
	}
	if err != nil {
		return nil, err
	}

	return boost, nil
}

// SetSaved is scoped to the recipient.
func (r *boostRepository) SetSaved(userID, id string, saved bool) error {
	result, err := r.db.Exec(`UPDATE boosts SET saved = $1 WHERE id = $2 AND to_user_id = $3`, saved, id, userID)
	if err != nil {
		return err
	}

	return expectRows(result, ErrBoostNotFound)
}

func (r *boostRepository) ForDate(userID, date string) ([]*model.Boost, error) {
	ds := r.dialect.From("boosts").Prepared(true).
		Where(
			goqu.C("to_user_id").Eq(userID),
			goqu.C("date").Eq(date),
		).
		Order(goqu.C("created_at").Asc())

	return r.selectBoosts(ds)
}

func (r *boostRepository) Saved(userID string) ([]*model.Boost, error) {
	ds := r.dialect.From("boosts").Prepared(true).
		Where(
			goqu.C("to_user_id").Eq(userID),
			goqu.C("saved").IsTrue(),
		).
		Order(goqu.C("created_at").Asc())

	return r.selectBoosts(ds)
}

// DeleteUnsaved removes every unsaved boost addressed to userID in one statement.
func (r *boostRepository) DeleteUnsaved(userID string) (int64, error) {
	query, args, err := r.dialect.Delete("boosts").Prepared(true).
		Where(
			goqu.C("to_user_id").Eq(userID),
			goqu.C("saved").IsNotTrue(),
		).
		ToSQL()
	if err != nil {
		return 0, err
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *boostRepository) selectBoosts(ds *goqu.SelectDataset) ([]*model.Boost, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var boosts []*model.Boost
	err = r.db.Select(&boosts, query, args...)
	if err != nil {
		return nil, err
	}

	return boosts, nil
}
