package model

import "time"

const (
	BoostTypeMotivation = "motivation"
	BoostTypeCongrats   = "congrats"
)

// Boost is a one-off encouragement or congratulation sent by a supporter.
type Boost struct {
	ID                 string    `db:"id" json:"id"`
	FromUserID         string    `db:"from_user_id" json:"from"`
	ToUserID           string    `db:"to_user_id" json:"to"`
	Date               string    `db:"date" json:"date"`
	Type               string    `db:"type" json:"type"`
	MotivationMessage  string    `db:"motivation_message" json:"motivation_message,omitempty"`
	CongratsMessage    string    `db:"congrats_message" json:"congrats_message,omitempty"`
	ImagePath          string    `db:"image_path" json:"-"`
	MotivationImageURL string    `db:"-" json:"motivation_image_url,omitempty"`
	CongratsImageURL   string    `db:"-" json:"congrats_image_url,omitempty"`
	Saved              bool      `db:"saved" json:"saved"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// IsCongrats matches either the type tag or a populated congrats message.
func (b *Boost) IsCongrats() bool {
	return b.Type == BoostTypeCongrats || b.CongratsMessage != ""
}

// SetImageURL fills the image field matching the boost's type.
func (b *Boost) SetImageURL(url string) {
	b.MotivationImageURL, b.CongratsImageURL = "", ""
	if b.Type == BoostTypeMotivation {
		b.MotivationImageURL = url
		return
	}
	b.CongratsImageURL = url
}

func (b *Boost) IsMotivation() bool {
	return b.Type == BoostTypeMotivation || b.MotivationMessage != ""
}

func ValidBoostType(t string) bool {
	return t == BoostTypeMotivation || t == BoostTypeCongrats
}
