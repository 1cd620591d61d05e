package model

import (
	"encoding/json"
	"time"
)

// Generate3DRequest starts (or restarts) draft generation for an asset
type Generate3DRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	AssetID   string `json:"assetId" validate:"required"`
	Name      string `json:"name,omitempty"`
	Prompt    string `json:"prompt" validate:"required,min=1"`
	ShouldRig bool   `json:"shouldRig,omitempty"`
}

// Rig3DRequest submits rigging against a completed draft task
type Rig3DRequest struct {
	ProjectID   string `json:"projectId" validate:"required"`
	AssetID     string `json:"assetId" validate:"required"`
	DraftTaskID string `json:"draftTaskId,omitempty"`
	// DraftModelURL lets the client backfill a URL it already polled before
	// the record caught up
	DraftModelURL string `json:"draftModelUrl,omitempty"`
}

// Animate3DRequest submits one animation preset against a rigged model
type Animate3DRequest struct {
	ProjectID       string `json:"projectId" validate:"required"`
	AssetID         string `json:"assetId" validate:"required"`
	RiggedModelURL  string `json:"riggedModelUrl" validate:"required"`
	AnimationPreset string `json:"animationPreset" validate:"required"`
	RigTaskID       string `json:"rigTaskId,omitempty"`
}

// GenerateTaskResponse is returned by every stage submitter
type GenerateTaskResponse struct {
	TaskID          string      `json:"taskId"`
	Status          AssetStatus `json:"status"`
	AnimationPreset string      `json:"animationPreset,omitempty"`
}

// TaskStatusResponse mirrors the provider's view of one task after the
// reconciliation side effects have been applied
type TaskStatusResponse struct {
	TaskID   string          `json:"taskId"`
	Status   TaskStatus      `json:"status"`
	Progress int             `json:"progress,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// VersionInfo describes one game-asset reference's drift against its source
type VersionInfo struct {
	RefID             string       `json:"refId"`
	AssetName         string       `json:"assetName"`
	AssetType         AssetKind    `json:"assetType"`
	State             VersionState `json:"state"`
	HasNewAnimations  bool         `json:"hasNewAnimations"`
	HasNewModel       bool         `json:"hasNewModel"`
	ChangedFields     []string     `json:"changedFields,omitempty"`
	ChangeDescription string       `json:"changeDescription,omitempty"`
	LockedAt          *time.Time   `json:"lockedAt,omitempty"`
	SourceUpdatedAt   time.Time    `json:"sourceUpdatedAt"`
}

// VersionCheckResponse reports drift across all references of a game project
type VersionCheckResponse struct {
	HasUpdates bool          `json:"hasUpdates"`
	Updates    []VersionInfo `json:"updates"`
	CheckedAt  time.Time     `json:"checkedAt"`
}

// SyncResponse acknowledges a reference re-pinned to the latest source
type SyncResponse struct {
	Success    bool     `json:"success"`
	RefID      string   `json:"refId"`
	AssetName  string   `json:"assetName"`
	NewVersion string   `json:"newVersion"`
	Changes    []string `json:"changes,omitempty"`
}

// ExportAssetRequest mirrors a finished model into durable storage
type ExportAssetRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	AssetID   string `json:"assetId" validate:"required"`
}

// ExportAssetResponse carries the durable URL of the mirrored file
type ExportAssetResponse struct {
	FileURL  string `json:"fileUrl"`
	Key      string `json:"key,omitempty"`
	FileName string `json:"fileName"`
	Mirrored bool   `json:"mirrored"`
}

// SettingsRequest updates the caller's provider key
type SettingsRequest struct {
	TripoAPIKey string `json:"tripoApiKey" validate:"required"`
}

// SettingsResponse never echoes the stored key back
type SettingsResponse struct {
	HasTripoAPIKey bool `json:"hasTripoApiKey"`
}
