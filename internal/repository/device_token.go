package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/withyou-app/withyou/internal/model"
)

type DeviceTokenRepository interface {
	Register(token *model.DeviceToken) error
	Tokens(userID string) ([]*model.DeviceToken, error)
	Delete(userID, token string) error
}

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Register moves an existing token to the caller when a device changes hands.
func (r *deviceTokenRepository) Register(token *model.DeviceToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`INSERT INTO device_tokens (token, user_id, platform, created_at)
	                     VALUES ($1, $2, $3, $4)
	                     ON CONFLICT (token) DO UPDATE SET user_id = excluded.user_id, platform = excluded.platform`,
		token.Token, token.UserID, token.Platform, token.CreatedAt)
	return err
}

func (r *deviceTokenRepository) Tokens(userID string) ([]*model.DeviceToken, error) {
	var tokens []*model.DeviceToken
	err := r.db.Select(&tokens, `SELECT * FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Delete is idempotent.
func (r *deviceTokenRepository) Delete(userID, token string) error {
	_, err := r.db.Exec(`DELETE FROM device_tokens WHERE token = $1 AND user_id = $2`, token, userID)
	return err
}
