package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetByUser(ctx context.Context, userID uint64) (*UserSettings, error) {
	var s UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOrCreate returns the user's settings, inserting def when none exist.
// A concurrent insert for the same user is resolved by reading the winner.
func (r *Repo) GetOrCreate(ctx context.Context, userID uint64, def *UserSettings) (*UserSettings, error) {
	s, err := r.GetByUser(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(def).Error; err != nil {
		if existing, getErr := r.GetByUser(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return def, nil
}

func (r *Repo) Save(ctx context.Context, s *UserSettings) error {
	return r.db.WithContext(ctx).Save(s).Error
}
