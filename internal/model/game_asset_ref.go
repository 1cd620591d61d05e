package model

import "time"

// GameAssetRef links a game build to a source asset. When the build pins a
// version, LockedAt is set and the Locked* columns capture the source's
// field values at that instant; the comparator diffs those snapshots against
// the live record. A reference without LockedAt always tracks latest.
type GameAssetRef struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProjectID string    `gorm:"not null;index" json:"projectId"`
	AssetType AssetKind `gorm:"not null" json:"assetType"`
	// SourceAssetID is the AssetRecord or ImageAsset id; stable across
	// regeneration.
	SourceAssetID string `gorm:"column:source_asset_id;not null;index" json:"sourceAssetId"`
	AssetName     string `gorm:"column:asset_name" json:"assetName"`

	// Cached display fields shown by the game-build UI
	GlbURL       string `gorm:"column:glb_url" json:"glbUrl,omitempty"`
	ThumbnailURL string `gorm:"column:thumbnail_url" json:"thumbnailUrl,omitempty"`

	// Lock state: LockedVersionID is an opaque marker (the source asset id
	// at lock time), LockedAt's presence means "pinned".
	LockedVersionID *string    `gorm:"column:locked_version_id" json:"lockedVersionId,omitempty"`
	LockedAt        *time.Time `gorm:"column:locked_at" json:"lockedAt,omitempty"`

	// Snapshot of the source captured at lock/sync time
	LockedModelURL   *string `gorm:"column:locked_model_url" json:"lockedModelUrl,omitempty"`
	LockedPrompt     *string `gorm:"column:locked_prompt" json:"lockedPrompt,omitempty"`
	LockedStyle      *string `gorm:"column:locked_style" json:"lockedStyle,omitempty"`
	LockedAnimations string  `gorm:"column:locked_animations" json:"lockedAnimations,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (GameAssetRef) TableName() string { return "game_asset_refs" }

// LockedAnimationNames decodes the animation-name snapshot.
func (r *GameAssetRef) LockedAnimationNames() []string {
	return DecodeStringSlice(r.LockedAnimations)
}
