package service

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/assetforge/api/internal/client"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/store"
)

// presetPattern is the provider's canned-animation naming scheme.
var presetPattern = regexp.MustCompile(`^preset:[a-zA-Z0-9_-]+$`)

// StatusBroadcaster pushes applied transitions to websocket subscribers.
type StatusBroadcaster interface {
	BroadcastStatus(taskID string, status model.AssetStatus, progress int)
	BroadcastComplete(taskID string, status model.AssetStatus, modelURL string)
	BroadcastError(taskID, code, message string)
}

// GenerationService owns the 3D asset pipeline: the three stage submitters
// and the status reconciler. Progress is entirely client-driven — each
// inbound poll reconciles one task's persisted state; there is no background
// worker.
type GenerationService struct {
	assets   *store.AssetStore
	projects *store.ProjectStore
	tripo    client.TaskClient
	hub      StatusBroadcaster // optional
}

func NewGenerationService(assets *store.AssetStore, projects *store.ProjectStore, tripo client.TaskClient, hub StatusBroadcaster) *GenerationService {
	return &GenerationService{
		assets:   assets,
		projects: projects,
		tripo:    tripo,
		hub:      hub,
	}
}

// authorizeProject confirms the project exists and belongs to the caller.
func (s *GenerationService) authorizeProject(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFoundErr("project not found")
	}
	if project.OwnerID != userID {
		return nil, forbiddenErr("project belongs to another user")
	}
	return project, nil
}

// resolveAPIKey prefers the user's own provider key over the process-wide
// fallback. Empty return means "use the fallback", which must then exist.
func (s *GenerationService) resolveAPIKey(ctx context.Context, userID string) (string, error) {
	userKey, err := s.projects.GetTripoKey(ctx, userID)
	if err != nil {
		return "", err
	}
	if userKey == "" && !s.tripo.IsConfigured() {
		return "", configErr("no Tripo API key configured")
	}
	return userKey, nil
}

// StartDraft submits draft generation and upserts the asset record keyed by
// (projectId, assetId). Regeneration resets all derived state while keeping
// the record id stable.
func (s *GenerationService) StartDraft(ctx context.Context, userID string, req *model.Generate3DRequest) (*model.GenerateTaskResponse, error) {
	if _, err := s.authorizeProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validationErr("prompt is required")
	}

	apiKey, err := s.resolveAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.tripo.SubmitTask(ctx, apiKey, client.TextToModelSpec{Prompt: req.Prompt})
	if err != nil {
		return nil, err
	}

	if _, err := s.assets.UpsertDraft(ctx, req.ProjectID, req.AssetID, req.Name, req.Prompt, req.ShouldRig, result.TaskID); err != nil {
		return nil, err
	}

	log.Printf("Draft submitted: project=%s asset=%s task=%s", req.ProjectID, req.AssetID, result.TaskID)
	return &model.GenerateTaskResponse{
		TaskID: result.TaskID,
		Status: model.AssetStatusQueued,
	}, nil
}

// StartRig submits auto-rigging against the draft's task id. The id is
// resolved request-first, then from the stored record; rigging before a
// draft exists is a precondition failure.
func (s *GenerationService) StartRig(ctx context.Context, userID string, req *model.Rig3DRequest) (*model.GenerateTaskResponse, error) {
	if _, err := s.authorizeProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}

	rec, err := s.assets.GetByKey(ctx, req.ProjectID, req.AssetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFoundErr("asset not found")
	}

	draftTaskID := req.DraftTaskID
	if draftTaskID == "" && rec.DraftTaskID != nil {
		draftTaskID = *rec.DraftTaskID
	}
	if draftTaskID == "" {
		return nil, preconditionErr("draft task not found; generate a draft model first")
	}

	// The client may have polled the draft to success before the record
	// synced; accept its URL so the record doesn't stay behind.
	backfillURL := ""
	if req.DraftModelURL != "" && (rec.DraftModelURL == nil || *rec.DraftModelURL == "") {
		backfillURL = req.DraftModelURL
	}

	apiKey, err := s.resolveAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.tripo.SubmitTask(ctx, apiKey, client.AnimateRigSpec{OriginalModelTaskID: draftTaskID})
	if err != nil {
		return nil, err
	}

	if err := s.assets.SetRigTask(ctx, rec.ID, result.TaskID, backfillURL); err != nil {
		return nil, err
	}

	log.Printf("Rig submitted: asset=%s draftTask=%s rigTask=%s", rec.ID, draftTaskID, result.TaskID)
	return &model.GenerateTaskResponse{
		TaskID: result.TaskID,
		Status: model.AssetStatusRigging,
	}, nil
}

// StartAnimate submits one animation preset against the rig task. The
// preset string must match "preset:<name>"; the new task id merges into the
// record's animation map without clobbering other presets.
func (s *GenerationService) StartAnimate(ctx context.Context, userID string, req *model.Animate3DRequest) (*model.GenerateTaskResponse, error) {
	if !presetPattern.MatchString(req.AnimationPreset) {
		return nil, validationErr("animationPreset must match \"preset:<name>\"")
	}

	if _, err := s.authorizeProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}

	rec, err := s.assets.GetByKey(ctx, req.ProjectID, req.AssetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFoundErr("asset not found")
	}

	rigTaskID := req.RigTaskID
	if rigTaskID == "" && rec.RigTaskID != nil {
		rigTaskID = *rec.RigTaskID
	}
	if rigTaskID == "" {
		return nil, preconditionErr("rig task not found; rig the model first")
	}

	apiKey, err := s.resolveAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.tripo.SubmitTask(ctx, apiKey, client.AnimateRetargetSpec{
		OriginalModelTaskID: rigTaskID,
		Animation:           req.AnimationPreset,
	})
	if err != nil {
		return nil, err
	}

	if err := s.assets.AddAnimationTask(ctx, rec.ID, req.AnimationPreset, result.TaskID); err != nil {
		return nil, err
	}

	log.Printf("Animation submitted: asset=%s preset=%s task=%s", rec.ID, req.AnimationPreset, result.TaskID)
	return &model.GenerateTaskResponse{
		TaskID:          result.TaskID,
		Status:          model.AssetStatusAnimating,
		AnimationPreset: req.AnimationPreset,
	}, nil
}

// PollTask is the status reconciler. One inbound poll performs one provider
// lookup, resolves the owning record, and applies at most one transition.
// Orphan tasks still return the upstream status, with no persistence.
func (s *GenerationService) PollTask(ctx context.Context, userID, taskID string) (*model.TaskStatusResponse, error) {
	apiKey, err := s.resolveAPIKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	state, err := s.tripo.GetTask(ctx, apiKey, taskID)
	if err != nil {
		return nil, err
	}
	if state.TaskID == "" {
		state.TaskID = taskID
	}

	resp := &model.TaskStatusResponse{
		TaskID:   taskID,
		Status:   state.Status,
		Progress: state.Progress,
		Output:   state.Output,
		Error:    state.Error,
	}

	rec, slot, preset, err := s.assets.FindOwner(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return resp, nil
	}

	// The upstream lookup already happened; ownership gates persistence only.
	if _, err := s.authorizeProject(ctx, userID, rec.ProjectID); err != nil {
		return nil, err
	}

	if err := s.applyTransition(ctx, rec, slot, preset, state); err != nil {
		return nil, err
	}

	return resp, nil
}

// applyTransition maps one upstream task state onto the owning record. All
// writes are idempotent: repeat polls of a finished task rewrite the same
// values.
func (s *GenerationService) applyTransition(ctx context.Context, rec *model.AssetRecord, slot model.TaskSlot, preset string, state *client.TaskState) error {
	switch state.Status {
	case model.TaskStatusSuccess:
		modelURL := client.ExtractModelURL(state.Output)
		if modelURL == "" {
			// Upstream sometimes reports success before the output
			// propagates. Not a failure — a future poll will carry the URL.
			log.Printf("Task %s succeeded with no extractable model URL, deferring", state.TaskID)
			return nil
		}

		var err error
		var status model.AssetStatus
		switch slot {
		case model.TaskSlotDraft:
			status = model.AssetStatusGenerated
			err = s.assets.ApplyDraftSuccess(ctx, rec.ID, modelURL)
		case model.TaskSlotRig:
			status = model.AssetStatusRigged
			err = s.assets.ApplyRigSuccess(ctx, rec.ID, modelURL)
		case model.TaskSlotAnimation:
			status = model.AssetStatusComplete
			err = s.assets.ApplyAnimationSuccess(ctx, rec.ID, preset, modelURL)
		}
		if err != nil {
			return err
		}
		if s.hub != nil {
			s.hub.BroadcastComplete(state.TaskID, status, modelURL)
		}

	case model.TaskStatusFailed:
		message := state.Error
		if message == "" {
			message = "Task failed without error message"
		}
		if err := s.assets.MarkFailed(ctx, rec.ID, message); err != nil {
			return err
		}
		if s.hub != nil {
			s.hub.BroadcastError(state.TaskID, "TASK_FAILED", message)
		}

	case model.TaskStatusRunning:
		visible := rec.Status
		if rec.Status == model.AssetStatusQueued {
			if err := s.assets.MarkGenerating(ctx, rec.ID); err != nil {
				return err
			}
			visible = model.AssetStatusGenerating
		}
		if s.hub != nil {
			s.hub.BroadcastStatus(state.TaskID, visible, state.Progress)
		}
	}

	return nil
}
