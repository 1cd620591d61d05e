package model

import "time"

// AssetRecord is the durable lifecycle state of one logical 3D asset within
// a project. (ProjectID, AssetID) is the business key: regeneration upserts
// on it, resetting every derived field while keeping ID stable so game-build
// references survive.
type AssetRecord struct {
	ID        string `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"not null;uniqueIndex:idx_asset_project_slug,priority:1" json:"projectId"`
	// AssetID is the plan-derived slug (e.g. "knight-character"), not a
	// provider task id.
	AssetID string  `gorm:"not null;uniqueIndex:idx_asset_project_slug,priority:2" json:"assetId"`
	Name    string  `gorm:"column:name" json:"name,omitempty"`
	Status  AssetStatus `gorm:"not null;index" json:"status"`

	// Provider task ids for the two single-shot stages
	DraftTaskID *string `gorm:"column:draft_task_id;index" json:"draftTaskId,omitempty"`
	RigTaskID   *string `gorm:"column:rig_task_id;index" json:"rigTaskId,omitempty"`
	// AnimationTaskIDs maps animation preset name to provider task id,
	// JSON-encoded. Grows by one entry per animate submission.
	AnimationTaskIDs string `gorm:"column:animation_task_ids" json:"animationTaskIds,omitempty"`

	DraftModelURL  *string `gorm:"column:draft_model_url" json:"draftModelUrl,omitempty"`
	RiggedModelURL *string `gorm:"column:rigged_model_url" json:"riggedModelUrl,omitempty"`
	// AnimatedModelURLs mirrors AnimationTaskIDs but only gains entries on
	// success, JSON-encoded.
	AnimatedModelURLs string `gorm:"column:animated_model_urls" json:"animatedModelUrls,omitempty"`

	PromptUsed   string  `gorm:"column:prompt_used" json:"promptUsed"`
	IsRiggable   bool    `gorm:"column:is_riggable" json:"isRiggable"`
	ErrorMessage *string `gorm:"column:error_message" json:"errorMessage,omitempty"`

	ApprovalStatus *ApprovalStatus `gorm:"column:approval_status" json:"approvalStatus,omitempty"`
	ApprovedAt     *time.Time      `gorm:"column:approved_at" json:"approvedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AssetRecord) TableName() string { return "asset_records" }

// AnimationTasks decodes the preset→task-id map.
func (r *AssetRecord) AnimationTasks() map[string]string {
	return DecodeStringMap(r.AnimationTaskIDs)
}

// AnimationURLs decodes the preset→model-URL map.
func (r *AssetRecord) AnimationURLs() map[string]string {
	return DecodeStringMap(r.AnimatedModelURLs)
}

// BestModelURL is the most refined model available: rigged if present,
// otherwise the draft.
func (r *AssetRecord) BestModelURL() string {
	if r.RiggedModelURL != nil && *r.RiggedModelURL != "" {
		return *r.RiggedModelURL
	}
	if r.DraftModelURL != nil {
		return *r.DraftModelURL
	}
	return ""
}

// TaskRef is the secondary index from provider task id to the asset record
// slot that owns it, written in the same transaction as each stage
// submission. A task id is never reassigned to a different record.
type TaskRef struct {
	TaskID        string   `gorm:"primaryKey" json:"taskId"`
	AssetRecordID string   `gorm:"not null;index" json:"assetRecordId"`
	Slot          TaskSlot `gorm:"not null" json:"slot"`
	// Preset is set only for animation slots
	Preset    string    `json:"preset,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (TaskRef) TableName() string { return "task_refs" }

// ImageAsset is a generated 2D asset. Only the fields the version comparator
// reads are modeled here; image generation itself is a single
// request/response path handled elsewhere.
type ImageAsset struct {
	ID        string `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"not null;uniqueIndex:idx_image_project_slug,priority:1" json:"projectId"`
	AssetID   string `gorm:"not null;uniqueIndex:idx_image_project_slug,priority:2" json:"assetId"`
	Name      string `json:"name,omitempty"`
	Prompt    string `json:"prompt"`
	// Metadata is free-form JSON; the comparator extracts a "style" field.
	Metadata  string    `json:"metadata,omitempty"`
	ImageURL  string    `gorm:"column:image_url" json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ImageAsset) TableName() string { return "image_assets" }
