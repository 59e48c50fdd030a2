package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"
)

// Repository provides user and history persistence.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a repository on the given datastore pool.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates the tables when they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&User{}, &UserHistory{})
}

// UpsertUser finds or creates the user for a provider subject. Profile
// fields on an existing row are overwritten only by non-empty values,
// so a sparse userinfo response never erases known data.
func (r *Repository) UpsertUser(ctx context.Context, subject, email, name, picture string) (*User, error) {
	if subject == "" {
		return nil, errors.New("store: subject is required")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	picture = strings.TrimSpace(picture)

	var user User
	err := r.db(ctx, false).Where("subject = ?", subject).First(&user).Error
	switch {
	case err == nil:
		if email != "" {
			user.Email = email
		}
		if name != "" {
			user.Name = name
		}
		if picture != "" {
			user.Picture = picture
		}
		if err := r.db(ctx, false).Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		user = User{Subject: subject, Email: email, Name: name, Picture: picture}
		if err := r.db(ctx, false).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil

	default:
		return nil, err
	}
}

// GetUserByID returns a user row, or nil when it does not exist.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db(ctx, true).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LoadHistory returns the stored history array for a user. A missing
// row or malformed stored value yields the empty array, never an error
// surface the kiosk would have to handle.
func (r *Repository) LoadHistory(ctx context.Context, userID string) (json.RawMessage, error) {
	var row UserHistory
	err := r.db(ctx, true).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return json.RawMessage("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(NormalizeEntries(json.RawMessage(row.Entries))), nil
}

// SaveHistory overwrites a user's history with the normalized value.
func (r *Repository) SaveHistory(ctx context.Context, userID string, entries json.RawMessage) error {
	normalized := NormalizeEntries(entries)

	var row UserHistory
	err := r.db(ctx, false).Where("user_id = ?", userID).First(&row).Error
	switch {
	case err == nil:
		row.Entries = normalized
		return r.db(ctx, false).Save(&row).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = UserHistory{UserID: userID, Entries: normalized}
		return r.db(ctx, false).Create(&row).Error
	default:
		return err
	}
}
