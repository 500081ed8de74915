package model

import "time"

type DeviceToken struct {
	Token     string    `db:"token" json:"token"`
	UserID    string    `db:"user_id" json:"-"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
