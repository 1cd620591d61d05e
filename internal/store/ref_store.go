package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/assetforge/api/internal/model"
)

// RefStore persists game-asset references, the downstream side of version
// tracking.
type RefStore struct {
	db *gorm.DB
}

func NewRefStore(db *gorm.DB) *RefStore {
	return &RefStore{db: db}
}

// GetRef returns (nil, nil) when the reference does not exist.
func (s *RefStore) GetRef(ctx context.Context, id string) (*model.GameAssetRef, error) {
	var ref model.GameAssetRef
	err := s.db.WithContext(ctx).First(&ref, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListByProject returns every reference linked into one game project.
func (s *RefStore) ListByProject(ctx context.Context, projectID string) ([]model.GameAssetRef, error) {
	var refs []model.GameAssetRef
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&refs).Error
	return refs, err
}

// CreateRef inserts a reference row.
func (s *RefStore) CreateRef(ctx context.Context, ref *model.GameAssetRef) error {
	return s.db.WithContext(ctx).Create(ref).Error
}

// UpdateRef overwrites a reference's cached and snapshot fields. Sync is the
// only caller; polling never mutates locks.
func (s *RefStore) UpdateRef(ctx context.Context, ref *model.GameAssetRef) error {
	return s.db.WithContext(ctx).Save(ref).Error
}

// GetImageAsset loads a 2D source asset for comparison. Returns (nil, nil)
// when absent.
func (s *RefStore) GetImageAsset(ctx context.Context, id string) (*model.ImageAsset, error) {
	var img model.ImageAsset
	err := s.db.WithContext(ctx).First(&img, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}
