package store

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/assetforge/api/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Project{},
		&model.UserSetting{},
		&model.AssetRecord{},
		&model.TaskRef{},
		&model.ImageAsset{},
		&model.GameAssetRef{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func TestUpsertDraft_CreateThenReset(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "knight-character", "Knight", "a brave knight", true, "task-draft-1")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated record id")
	}
	if rec.Status != model.AssetStatusQueued {
		t.Errorf("expected queued status, got %q", rec.Status)
	}

	// Simulate progress so the reset has something to clear
	if err := s.ApplyDraftSuccess(ctx, rec.ID, "https://cdn.example.com/draft.glb"); err != nil {
		t.Fatalf("ApplyDraftSuccess failed: %v", err)
	}
	if err := s.SetRigTask(ctx, rec.ID, "task-rig-1", ""); err != nil {
		t.Fatalf("SetRigTask failed: %v", err)
	}
	if err := s.ApplyRigSuccess(ctx, rec.ID, "https://cdn.example.com/rigged.glb"); err != nil {
		t.Fatalf("ApplyRigSuccess failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:walk", "task-anim-1"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}

	// Regenerate the same (projectID, assetID)
	rec2, err := s.UpsertDraft(ctx, "proj-1", "knight-character", "", "a braver knight", true, "task-draft-2")
	if err != nil {
		t.Fatalf("regeneration UpsertDraft failed: %v", err)
	}

	if rec2.ID != rec.ID {
		t.Errorf("regeneration must keep the record id: %q vs %q", rec2.ID, rec.ID)
	}
	if rec2.Status != model.AssetStatusQueued {
		t.Errorf("expected queued after regeneration, got %q", rec2.Status)
	}
	if rec2.DraftTaskID == nil || *rec2.DraftTaskID != "task-draft-2" {
		t.Errorf("expected new draft task id, got %v", rec2.DraftTaskID)
	}
	if rec2.RigTaskID != nil {
		t.Errorf("expected rig task cleared, got %v", *rec2.RigTaskID)
	}
	if len(rec2.AnimationTasks()) != 0 {
		t.Errorf("expected animation tasks cleared, got %v", rec2.AnimationTasks())
	}
	if rec2.RiggedModelURL != nil {
		t.Errorf("expected rigged URL cleared, got %v", *rec2.RiggedModelURL)
	}
	if rec2.PromptUsed != "a braver knight" {
		t.Errorf("expected new prompt, got %q", rec2.PromptUsed)
	}
	// Name persists when omitted from the regeneration request
	if rec2.Name != "Knight" {
		t.Errorf("expected name preserved, got %q", rec2.Name)
	}

	// Stale task refs from the first generation must be gone
	owner, _, _, err := s.FindOwner(ctx, "task-rig-1")
	if err != nil {
		t.Fatalf("FindOwner failed: %v", err)
	}
	if owner != nil {
		t.Error("expected stale rig task ref removed on regeneration")
	}
}

func TestFindOwner_AllSlots(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "barrel", "", "a barrel", false, "task-draft")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}
	if err := s.SetRigTask(ctx, rec.ID, "task-rig", ""); err != nil {
		t.Fatalf("SetRigTask failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:idle", "task-anim-idle"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:walk", "task-anim-walk"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}

	owner, slot, preset, err := s.FindOwner(ctx, "task-draft")
	if err != nil || owner == nil {
		t.Fatalf("FindOwner(draft) failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotDraft || preset != "" {
		t.Errorf("expected draft slot, got %q/%q", slot, preset)
	}

	owner, slot, _, err = s.FindOwner(ctx, "task-rig")
	if err != nil || owner == nil {
		t.Fatalf("FindOwner(rig) failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotRig {
		t.Errorf("expected rig slot, got %q", slot)
	}

	owner, slot, preset, err = s.FindOwner(ctx, "task-anim-walk")
	if err != nil || owner == nil {
		t.Fatalf("FindOwner(animation) failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotAnimation || preset != "preset:walk" {
		t.Errorf("expected animation slot preset:walk, got %q/%q", slot, preset)
	}

	// Unknown task ids are orphans, not errors
	owner, _, _, err = s.FindOwner(ctx, "task-unknown")
	if err != nil {
		t.Fatalf("FindOwner(orphan) failed: %v", err)
	}
	if owner != nil {
		t.Error("expected nil owner for unknown task id")
	}
}

func TestFindOwner_LegacyScanFallback(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	// A record written before the task-ref index existed: slots populated,
	// no task_refs rows.
	draftID := "legacy-draft"
	rigID := "legacy-rig"
	legacy := model.AssetRecord{
		ID:               "rec-legacy",
		ProjectID:        "proj-legacy",
		AssetID:          "old-asset",
		Status:           model.AssetStatusComplete,
		DraftTaskID:      &draftID,
		RigTaskID:        &rigID,
		AnimationTaskIDs: `{"preset:run":"legacy-anim"}`,
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("failed to seed legacy record: %v", err)
	}

	owner, slot, _, err := s.FindOwner(ctx, "legacy-draft")
	if err != nil || owner == nil {
		t.Fatalf("legacy draft lookup failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotDraft {
		t.Errorf("expected draft slot, got %q", slot)
	}

	owner, slot, _, err = s.FindOwner(ctx, "legacy-rig")
	if err != nil || owner == nil {
		t.Fatalf("legacy rig lookup failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotRig {
		t.Errorf("expected rig slot, got %q", slot)
	}

	owner, slot, preset, err := s.FindOwner(ctx, "legacy-anim")
	if err != nil || owner == nil {
		t.Fatalf("legacy animation lookup failed: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotAnimation || preset != "preset:run" {
		t.Errorf("expected animation slot preset:run, got %q/%q", slot, preset)
	}
}

func TestAddAnimationTask_PreservesOtherPresets(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "goblin", "", "a goblin", true, "task-draft")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}

	if err := s.AddAnimationTask(ctx, rec.ID, "preset:idle", "task-idle"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:walk", "task-walk"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}

	got, err := s.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	tasks := got.AnimationTasks()
	if tasks["preset:idle"] != "task-idle" || tasks["preset:walk"] != "task-walk" {
		t.Errorf("expected both presets tracked, got %v", tasks)
	}
	if got.Status != model.AssetStatusAnimating {
		t.Errorf("expected animating status, got %q", got.Status)
	}
}

func TestApplyAnimationSuccess_MergesURLs(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "goblin", "", "a goblin", true, "task-draft")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}

	if err := s.ApplyAnimationSuccess(ctx, rec.ID, "preset:idle", "https://cdn.example.com/idle.glb"); err != nil {
		t.Fatalf("ApplyAnimationSuccess failed: %v", err)
	}
	if err := s.ApplyAnimationSuccess(ctx, rec.ID, "preset:walk", "https://cdn.example.com/walk.glb"); err != nil {
		t.Fatalf("ApplyAnimationSuccess failed: %v", err)
	}
	// Re-applying the same preset and URL is a no-op
	if err := s.ApplyAnimationSuccess(ctx, rec.ID, "preset:idle", "https://cdn.example.com/idle.glb"); err != nil {
		t.Fatalf("repeat ApplyAnimationSuccess failed: %v", err)
	}

	got, err := s.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	urls := got.AnimationURLs()
	if len(urls) != 2 {
		t.Errorf("expected two animation URLs, got %v", urls)
	}
	if urls["preset:idle"] != "https://cdn.example.com/idle.glb" {
		t.Errorf("unexpected idle URL: %q", urls["preset:idle"])
	}
	if got.Status != model.AssetStatusComplete {
		t.Errorf("expected complete status, got %q", got.Status)
	}
}

func TestMarkGenerating_OnlyFromQueued(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "crate", "", "a crate", false, "task-draft")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}

	if err := s.MarkGenerating(ctx, rec.ID); err != nil {
		t.Fatalf("MarkGenerating failed: %v", err)
	}
	got, _ := s.GetByID(ctx, rec.ID)
	if got.Status != model.AssetStatusGenerating {
		t.Errorf("expected generating, got %q", got.Status)
	}

	// A record past queued is left alone
	if err := s.ApplyDraftSuccess(ctx, rec.ID, "https://cdn.example.com/crate.glb"); err != nil {
		t.Fatalf("ApplyDraftSuccess failed: %v", err)
	}
	if err := s.MarkGenerating(ctx, rec.ID); err != nil {
		t.Fatalf("MarkGenerating failed: %v", err)
	}
	got, _ = s.GetByID(ctx, rec.ID)
	if got.Status != model.AssetStatusGenerated {
		t.Errorf("expected generated to be preserved, got %q", got.Status)
	}
}

func TestGetByKey_NotFoundIsNil(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)

	rec, err := s.GetByKey(context.Background(), "proj-x", "nothing")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestSetRigTask_SupersedesOldRef(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "knight", "", "a knight", true, "task-draft-1")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}
	if err := s.SetRigTask(ctx, rec.ID, "task-rig-1", ""); err != nil {
		t.Fatalf("SetRigTask failed: %v", err)
	}
	if err := s.SetRigTask(ctx, rec.ID, "task-rig-2", ""); err != nil {
		t.Fatalf("second SetRigTask failed: %v", err)
	}

	owner, _, _, err := s.FindOwner(ctx, "task-rig-1")
	if err != nil {
		t.Fatalf("FindOwner failed: %v", err)
	}
	if owner != nil {
		t.Error("superseded rig task must no longer resolve")
	}

	owner, slot, _, err := s.FindOwner(ctx, "task-rig-2")
	if err != nil || owner == nil {
		t.Fatalf("expected live rig task to resolve: owner=%v err=%v", owner, err)
	}
	if slot != model.TaskSlotRig {
		t.Errorf("expected rig slot, got %q", slot)
	}
}

func TestAddAnimationTask_SupersedesSamePresetOnly(t *testing.T) {
	db := testDB(t)
	s := NewAssetStore(db)
	ctx := context.Background()

	rec, err := s.UpsertDraft(ctx, "proj-1", "knight", "", "a knight", true, "task-draft-1")
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:walk", "task-walk-1"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:idle", "task-idle-1"); err != nil {
		t.Fatalf("AddAnimationTask failed: %v", err)
	}
	if err := s.AddAnimationTask(ctx, rec.ID, "preset:walk", "task-walk-2"); err != nil {
		t.Fatalf("walk resubmit failed: %v", err)
	}

	owner, _, _, err := s.FindOwner(ctx, "task-walk-1")
	if err != nil {
		t.Fatalf("FindOwner failed: %v", err)
	}
	if owner != nil {
		t.Error("superseded walk task must no longer resolve")
	}

	owner, _, preset, err := s.FindOwner(ctx, "task-walk-2")
	if err != nil || owner == nil {
		t.Fatalf("expected live walk task to resolve: owner=%v err=%v", owner, err)
	}
	if preset != "preset:walk" {
		t.Errorf("expected preset:walk, got %q", preset)
	}

	// The other preset's ref is untouched
	owner, _, preset, err = s.FindOwner(ctx, "task-idle-1")
	if err != nil || owner == nil {
		t.Fatalf("expected idle task to resolve: owner=%v err=%v", owner, err)
	}
	if preset != "preset:idle" {
		t.Errorf("expected preset:idle, got %q", preset)
	}
}
