// Package store persists signed-in users and their per-user
// conversation history.
package store

import (
	"bytes"
	"encoding/json"

	"github.com/pitabwire/frame/data"
)

// User is a Google-authenticated kiosk user, keyed by the provider
// subject.
type User struct {
	data.BaseModel

	Subject string `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
	Email   string `gorm:"type:varchar(320);index" json:"email,omitempty"`
	Name    string `gorm:"type:varchar(200)"       json:"name,omitempty"`
	Picture string `gorm:"type:varchar(500)"       json:"picture,omitempty"`
}

func (User) TableName() string { return "users" }

// UserHistory holds one user's conversation history as a JSON array.
type UserHistory struct {
	data.BaseModel

	UserID  string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"user_id"`
	Entries EntriesJSON `gorm:"type:jsonb;default:'[]'"               json:"entries"`
}

func (UserHistory) TableName() string { return "user_histories" }

// EntriesJSON is a custom GORM type storing the raw history array as
// JSONB.
type EntriesJSON json.RawMessage

func (e EntriesJSON) Value() (interface{}, error) {
	if len(e) == 0 {
		return "[]", nil
	}
	return string(e), nil
}

func (e *EntriesJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		*e = EntriesJSON(append([]byte(nil), v...))
	case string:
		*e = EntriesJSON(v)
	default:
		*e = EntriesJSON("[]")
	}
	return nil
}

// NormalizeEntries coerces arbitrary input to a valid JSON array.
// Anything that is not one becomes the empty array.
func NormalizeEntries(raw json.RawMessage) EntriesJSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return EntriesJSON("[]")
	}
	return EntriesJSON(trimmed)
}
