package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/chainboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository is a GORM implementation of SettingsRepository
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get finds the settings of a session
func (r *GormSettingsRepository) Get(ctx context.Context, sessionID string) (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}

// Save upserts the settings of a session
func (r *GormSettingsRepository) Save(ctx context.Context, settings models.NotificationSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&settings).Error
}
