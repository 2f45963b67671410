package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no record. Callers can use it
// to tell "no such record" apart from a failing query.
var ErrNotFound = errors.New("record not found")

// ModelRecord represents a user's in-game character model. At most one model
// record exists per user id; lookups take the first row when that invariant
// is ever violated by external writers.
type ModelRecord struct {
	ID        uint      `db:"id"        json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`

	UserID           string `db:"user_id"           json:"user_id"`
	Color            string `db:"color"             json:"color"`
	OriginalMaterial bool   `db:"original_material" json:"original_material"`
	ModelURL         string `db:"model_url"         json:"model_url"`
}

// UserRecord represents a chat user. The avatar URL points at the most
// recently generated avatar image for that user.
type UserRecord struct {
	ID        uint      `db:"id"        json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`

	UserID    string `db:"user_id"    json:"user_id"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}
