package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assetforge/api/internal/model"
)

// ProjectStore answers ownership questions and holds per-user settings
type ProjectStore struct {
	db *gorm.DB
}

func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// GetProject returns (nil, nil) when the project does not exist.
func (s *ProjectStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject inserts a project row.
func (s *ProjectStore) CreateProject(ctx context.Context, p *model.Project) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// GetTripoKey returns the user's own provider key, or "" when none is set.
func (s *ProjectStore) GetTripoKey(ctx context.Context, userID string) (string, error) {
	var setting model.UserSetting
	err := s.db.WithContext(ctx).First(&setting, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.TripoAPIKey, nil
}

// SetTripoKey stores or replaces the user's provider key.
func (s *ProjectStore) SetTripoKey(ctx context.Context, userID, apiKey string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tripo_api_key", "updated_at"}),
	}).Create(&model.UserSetting{
		UserID:      userID,
		TripoAPIKey: apiKey,
	}).Error
}
