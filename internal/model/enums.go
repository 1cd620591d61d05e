package model

// AssetStatus tracks the generation lifecycle of a 3D asset. Monotonic on
// the happy path; regeneration resets a record back to queued.
type AssetStatus string

const (
	AssetStatusQueued     AssetStatus = "queued"
	AssetStatusGenerating AssetStatus = "generating"
	AssetStatusGenerated  AssetStatus = "generated"
	AssetStatusRigging    AssetStatus = "rigging"
	AssetStatusRigged     AssetStatus = "rigged"
	AssetStatusAnimating  AssetStatus = "animating"
	AssetStatusComplete   AssetStatus = "complete"
	AssetStatusFailed     AssetStatus = "failed"
)

// TaskSlot identifies which identifier slot of an asset record a provider
// task id lives in.
type TaskSlot string

const (
	TaskSlotDraft     TaskSlot = "draft"
	TaskSlotRig       TaskSlot = "rig"
	TaskSlotAnimation TaskSlot = "animation"
)

// Provider task status as reported by the upstream API
type TaskStatus string

const (
	TaskStatusQueued  TaskStatus = "queued"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailed  TaskStatus = "failed"
)

// Approval gate applied by the downstream review feature
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Asset kinds referenced by game-build links
type AssetKind string

const (
	AssetKind3D    AssetKind = "3d"
	AssetKindImage AssetKind = "image"
)

// VersionState classifies a game-asset reference against its source asset.
type VersionState string

const (
	// VersionCurrent: no lock timestamp, the reference always tracks latest.
	VersionCurrent VersionState = "current"
	// VersionLocked: pinned and the source has not changed since the lock.
	VersionLocked VersionState = "locked"
	// VersionOutdated: pinned and the source changed after the lock.
	VersionOutdated VersionState = "outdated"
)
