package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assetforge/api/internal/model"
)

// AssetStore persists asset records and the task-id index. Every write that
// assigns a provider task id to a slot also writes the matching TaskRef row
// in the same transaction, so owner lookup stays O(1).
type AssetStore struct {
	db *gorm.DB
}

func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

// GetByKey loads a record by its (projectID, assetID) business key. Returns
// (nil, nil) when no record exists.
func (s *AssetStore) GetByKey(ctx context.Context, projectID, assetID string) (*model.AssetRecord, error) {
	var rec model.AssetRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND asset_id = ?", projectID, assetID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByID loads a record by its durable id. Returns (nil, nil) when absent.
func (s *AssetStore) GetByID(ctx context.Context, id string) (*model.AssetRecord, error) {
	var rec model.AssetRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertDraft creates the record on first draft submission, or resets it on
// regeneration. The business key is (projectID, assetID); the durable id
// never changes, so downstream references survive regeneration. All derived
// fields — task ids, URLs, error, approval — are cleared.
func (s *AssetStore) UpsertDraft(ctx context.Context, projectID, assetID, name, prompt string, isRiggable bool, draftTaskID string) (*model.AssetRecord, error) {
	var rec model.AssetRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.AssetRecord
		err := tx.Where("project_id = ? AND asset_id = ?", projectID, assetID).First(&existing).Error

		switch {
		case err == nil:
			// Regeneration: stale task refs must not resolve to cleared slots
			if err := tx.Where("asset_record_id = ?", existing.ID).Delete(&model.TaskRef{}).Error; err != nil {
				return err
			}
			updates := map[string]interface{}{
				"status":              model.AssetStatusQueued,
				"draft_task_id":       draftTaskID,
				"rig_task_id":         nil,
				"animation_task_ids":  "",
				"draft_model_url":     nil,
				"rigged_model_url":    nil,
				"animated_model_urls": "",
				"prompt_used":         prompt,
				"is_riggable":         isRiggable,
				"error_message":       nil,
				"approval_status":     nil,
				"approved_at":         nil,
			}
			if name != "" {
				updates["name"] = name
			}
			if err := tx.Model(&model.AssetRecord{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.First(&rec, "id = ?", existing.ID).Error; err != nil {
				return err
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = model.AssetRecord{
				ID:          uuid.New().String(),
				ProjectID:   projectID,
				AssetID:     assetID,
				Name:        name,
				Status:      model.AssetStatusQueued,
				DraftTaskID: &draftTaskID,
				PromptUsed:  prompt,
				IsRiggable:  isRiggable,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}

		default:
			return err
		}

		return tx.Create(&model.TaskRef{
			TaskID:        draftTaskID,
			AssetRecordID: rec.ID,
			Slot:          model.TaskSlotDraft,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetRigTask records a submitted rig task. When the caller polled a draft
// URL the record hasn't caught up with yet, backfillDraftURL closes the gap.
func (s *AssetStore) SetRigTask(ctx context.Context, recordID, rigTaskID, backfillDraftURL string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"rig_task_id":   rigTaskID,
			"status":        model.AssetStatusRigging,
			"error_message": nil,
		}
		if backfillDraftURL != "" {
			updates["draft_model_url"] = backfillDraftURL
		}
		if err := tx.Model(&model.AssetRecord{}).Where("id = ?", recordID).Updates(updates).Error; err != nil {
			return err
		}
		// A superseded rig task must fall out of the index, or polling the
		// old id would overwrite the new submission's result
		if err := tx.Where("asset_record_id = ? AND slot = ?", recordID, model.TaskSlotRig).Delete(&model.TaskRef{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.TaskRef{
			TaskID:        rigTaskID,
			AssetRecordID: recordID,
			Slot:          model.TaskSlotRig,
		}).Error
	})
}

// AddAnimationTask merges one preset's task id into the record's animation
// map. Read-modify-write inside the transaction so other presets' entries
// are preserved.
func (s *AssetStore) AddAnimationTask(ctx context.Context, recordID, preset, taskID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.AssetRecord
		if err := tx.First(&rec, "id = ?", recordID).Error; err != nil {
			return err
		}

		tasks := rec.AnimationTasks()
		tasks[preset] = taskID

		updates := map[string]interface{}{
			"animation_task_ids": model.EncodeStringMap(tasks),
			"status":             model.AssetStatusAnimating,
			"error_message":      nil,
		}
		if err := tx.Model(&model.AssetRecord{}).Where("id = ?", recordID).Updates(updates).Error; err != nil {
			return err
		}
		// Resubmitting the same preset replaces its task; drop the old ref
		// so only the live id resolves
		if err := tx.Where("asset_record_id = ? AND slot = ? AND preset = ?", recordID, model.TaskSlotAnimation, preset).Delete(&model.TaskRef{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.TaskRef{
			TaskID:        taskID,
			AssetRecordID: recordID,
			Slot:          model.TaskSlotAnimation,
			Preset:        preset,
		}).Error
	})
}

// FindOwner resolves which asset record owns a provider task id, and in
// which slot. The TaskRef index answers in one lookup; records written
// before the index existed fall back to the exhaustive three-slot scan. A
// task id has at most one owner. Returns (nil, "", "", nil) for orphans.
func (s *AssetStore) FindOwner(ctx context.Context, taskID string) (*model.AssetRecord, model.TaskSlot, string, error) {
	db := s.db.WithContext(ctx)

	var ref model.TaskRef
	err := db.First(&ref, "task_id = ?", taskID).Error
	if err == nil {
		rec, err := s.GetByID(ctx, ref.AssetRecordID)
		if err != nil {
			return nil, "", "", err
		}
		if rec != nil {
			return rec, ref.Slot, ref.Preset, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	// Legacy path: direct slot matches first
	var rec model.AssetRecord
	err = db.Where("draft_task_id = ?", taskID).First(&rec).Error
	if err == nil {
		return &rec, model.TaskSlotDraft, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	err = db.Where("rig_task_id = ?", taskID).First(&rec).Error
	if err == nil {
		return &rec, model.TaskSlotRig, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}

	// Animation maps require parsing every candidate record
	var candidates []model.AssetRecord
	if err := db.Where("animation_task_ids <> ''").Find(&candidates).Error; err != nil {
		return nil, "", "", err
	}
	for i := range candidates {
		for preset, id := range candidates[i].AnimationTasks() {
			if id == taskID {
				return &candidates[i], model.TaskSlotAnimation, preset, nil
			}
		}
	}

	return nil, "", "", nil
}

// ApplyDraftSuccess applies the draft stage's terminal transition. Writing
// the same URL twice is a no-op, which is what makes repeat polls safe.
func (s *AssetStore) ApplyDraftSuccess(ctx context.Context, recordID, modelURL string) error {
	return s.db.WithContext(ctx).Model(&model.AssetRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"status":          model.AssetStatusGenerated,
			"draft_model_url": modelURL,
			"error_message":   nil,
		}).Error
}

// ApplyRigSuccess applies the rig stage's terminal transition.
func (s *AssetStore) ApplyRigSuccess(ctx context.Context, recordID, modelURL string) error {
	return s.db.WithContext(ctx).Model(&model.AssetRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"status":           model.AssetStatusRigged,
			"rigged_model_url": modelURL,
			"error_message":    nil,
		}).Error
}

// ApplyAnimationSuccess merges one preset's result URL and marks the record
// complete (animation is the terminal stage). Re-applying the same preset
// and URL leaves the map unchanged.
func (s *AssetStore) ApplyAnimationSuccess(ctx context.Context, recordID, preset, modelURL string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.AssetRecord
		if err := tx.First(&rec, "id = ?", recordID).Error; err != nil {
			return err
		}

		urls := rec.AnimationURLs()
		urls[preset] = modelURL

		return tx.Model(&model.AssetRecord{}).Where("id = ?", recordID).
			Updates(map[string]interface{}{
				"animated_model_urls": model.EncodeStringMap(urls),
				"status":              model.AssetStatusComplete,
				"error_message":       nil,
			}).Error
	})
}

// MarkFailed records the upstream failure reason.
func (s *AssetStore) MarkFailed(ctx context.Context, recordID, message string) error {
	return s.db.WithContext(ctx).Model(&model.AssetRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"status":        model.AssetStatusFailed,
			"error_message": message,
		}).Error
}

// MarkGenerating upgrades a queued record once the provider reports the
// task running. Records past queued are left alone.
func (s *AssetStore) MarkGenerating(ctx context.Context, recordID string) error {
	return s.db.WithContext(ctx).Model(&model.AssetRecord{}).
		Where("id = ? AND status = ?", recordID, model.AssetStatusQueued).
		Update("status", model.AssetStatusGenerating).Error
}
