package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/store"
)

// VersionService detects and reconciles drift between a game build's locked
// view of an asset and the live source record. The comparator diffs the
// snapshot captured at lock time against the live row — never the live row
// against itself.
type VersionService struct {
	refs     *store.RefStore
	assets   *store.AssetStore
	projects *store.ProjectStore
}

func NewVersionService(refs *store.RefStore, assets *store.AssetStore, projects *store.ProjectStore) *VersionService {
	return &VersionService{
		refs:     refs,
		assets:   assets,
		projects: projects,
	}
}

// CheckProject classifies every reference in a game project against its
// source asset.
func (s *VersionService) CheckProject(ctx context.Context, userID, projectID string) (*model.VersionCheckResponse, error) {
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

	refs, err := s.refs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	resp := &model.VersionCheckResponse{
		Updates:   make([]model.VersionInfo, 0, len(refs)),
		CheckedAt: time.Now(),
	}

	for i := range refs {
		info, err := s.compareRef(ctx, &refs[i])
		if err != nil {
			return nil, err
		}
		if info == nil {
			// Source deleted out from under the ref; skip rather than fail
			// the whole sweep.
			log.Printf("Version check: source %s missing for ref %s", refs[i].SourceAssetID, refs[i].ID)
			continue
		}
		if info.State == model.VersionOutdated {
			resp.HasUpdates = true
		}
		resp.Updates = append(resp.Updates, *info)
	}

	return resp, nil
}

// compareRef runs the comparator for one reference. Returns nil when the
// source asset no longer exists.
func (s *VersionService) compareRef(ctx context.Context, ref *model.GameAssetRef) (*model.VersionInfo, error) {
	switch ref.AssetType {
	case model.AssetKindImage:
		img, err := s.refs.GetImageAsset(ctx, ref.SourceAssetID)
		if err != nil || img == nil {
			return nil, err
		}
		info := s.classify(ref, img.UpdatedAt)
		if info.State == model.VersionOutdated {
			diffImage(ref, img, info)
		}
		return info, nil

	default:
		rec, err := s.assets.GetByID(ctx, ref.SourceAssetID)
		if err != nil || rec == nil {
			return nil, err
		}
		info := s.classify(ref, rec.UpdatedAt)
		if info.State == model.VersionOutdated {
			diffModel(ref, rec, info)
		}
		return info, nil
	}
}

// classify applies the lock semantics: no lock timestamp means the reference
// tracks latest and is never outdated; a lock older than the source's last
// update means drift.
func (s *VersionService) classify(ref *model.GameAssetRef, sourceUpdatedAt time.Time) *model.VersionInfo {
	info := &model.VersionInfo{
		RefID:           ref.ID,
		AssetName:       ref.AssetName,
		AssetType:       ref.AssetType,
		LockedAt:        ref.LockedAt,
		SourceUpdatedAt: sourceUpdatedAt,
	}
	switch {
	case ref.LockedAt == nil:
		info.State = model.VersionCurrent
	case sourceUpdatedAt.After(*ref.LockedAt):
		info.State = model.VersionOutdated
	default:
		info.State = model.VersionLocked
	}
	return info
}

// diffModel compares the 3D lock snapshot against the live record: the
// sorted animation-name sets and the best model URL.
func diffModel(ref *model.GameAssetRef, rec *model.AssetRecord, info *model.VersionInfo) {
	lockedAnims := ref.LockedAnimationNames()
	liveAnims := model.SortedKeys(rec.AnimationURLs())

	if !equalStringSets(lockedAnims, liveAnims) {
		info.HasNewAnimations = true
		info.ChangedFields = append(info.ChangedFields, "animations")
	}

	liveModel := rec.BestModelURL()
	lockedModel := ""
	if ref.LockedModelURL != nil {
		lockedModel = *ref.LockedModelURL
	}
	if liveModel != lockedModel {
		info.HasNewModel = true
		info.ChangedFields = append(info.ChangedFields, "model")
	}

	lockedPrompt := ""
	if ref.LockedPrompt != nil {
		lockedPrompt = *ref.LockedPrompt
	}
	if rec.PromptUsed != lockedPrompt {
		info.ChangedFields = append(info.ChangedFields, "prompt")
	}

	info.ChangeDescription = describeModelChanges(lockedAnims, liveAnims, info)
}

// diffImage compares the 2D lock snapshot: a style field parsed from the
// free-form metadata JSON, and the prompt text.
func diffImage(ref *model.GameAssetRef, img *model.ImageAsset, info *model.VersionInfo) {
	liveStyle := styleFromMetadata(img.Metadata)
	lockedStyle := ""
	if ref.LockedStyle != nil {
		lockedStyle = *ref.LockedStyle
	}
	if liveStyle != lockedStyle {
		info.ChangedFields = append(info.ChangedFields, "style")
	}

	lockedPrompt := ""
	if ref.LockedPrompt != nil {
		lockedPrompt = *ref.LockedPrompt
	}
	if img.Prompt != lockedPrompt {
		info.ChangedFields = append(info.ChangedFields, "prompt")
	}

	if len(info.ChangedFields) > 0 {
		info.ChangeDescription = strings.Join(info.ChangedFields, ", ") + " updated"
	}
}

// equalStringSets compares two name sets regardless of stored order.
func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// styleFromMetadata digs a "style" field out of free-form JSON metadata.
func styleFromMetadata(raw string) string {
	if raw == "" {
		return ""
	}
	var meta struct {
		Style string `json:"style"`
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return ""
	}
	return meta.Style
}

// describeModelChanges builds the short human summary, e.g.
// "2 new animations, model updated".
func describeModelChanges(lockedAnims, liveAnims []string, info *model.VersionInfo) string {
	var parts []string
	if info.HasNewAnimations {
		added := len(liveAnims) - len(lockedAnims)
		if added > 0 {
			noun := "animations"
			if added == 1 {
				noun = "animation"
			}
			parts = append(parts, fmt.Sprintf("%d new %s", added, noun))
		} else {
			parts = append(parts, "animations changed")
		}
	}
	if info.HasNewModel {
		parts = append(parts, "model updated")
	}
	for _, f := range info.ChangedFields {
		if f == "prompt" {
			parts = append(parts, "prompt changed")
		}
	}
	return strings.Join(parts, ", ")
}

// Sync re-pins one reference to the latest source: overwrites the cached
// display fields and the lock snapshot, then advances the lock marker to
// the source's current UpdatedAt.
func (s *VersionService) Sync(ctx context.Context, userID, refID string) (*model.SyncResponse, error) {
	ref, err := s.refs.GetRef(ctx, refID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, notFoundErr("asset reference not found")
	}

	project, err := s.projects.GetProject(ctx, ref.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFoundErr("project not found")
	}
	if project.OwnerID != userID {
		return nil, forbiddenErr("project belongs to another user")
	}

	info, err := s.compareRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, notFoundErr("source asset not found")
	}

	switch ref.AssetType {
	case model.AssetKindImage:
		img, err := s.refs.GetImageAsset(ctx, ref.SourceAssetID)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, notFoundErr("source asset not found")
		}
		style := styleFromMetadata(img.Metadata)
		ref.ThumbnailURL = img.ImageURL
		ref.LockedStyle = &style
		ref.LockedPrompt = &img.Prompt
		ref.LockedVersionID = &img.ID
		lockedAt := img.UpdatedAt
		ref.LockedAt = &lockedAt

	default:
		rec, err := s.assets.GetByID(ctx, ref.SourceAssetID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, notFoundErr("source asset not found")
		}
		modelURL := rec.BestModelURL()
		ref.GlbURL = modelURL
		ref.LockedModelURL = &modelURL
		ref.LockedPrompt = &rec.PromptUsed
		ref.LockedAnimations = model.EncodeStringSlice(model.SortedKeys(rec.AnimationURLs()))
		ref.LockedVersionID = &rec.ID
		lockedAt := rec.UpdatedAt
		ref.LockedAt = &lockedAt
	}

	if err := s.refs.UpdateRef(ctx, ref); err != nil {
		return nil, err
	}

	log.Printf("Synced ref %s to source %s", ref.ID, ref.SourceAssetID)
	return &model.SyncResponse{
		Success:    true,
		RefID:      ref.ID,
		AssetName:  ref.AssetName,
		NewVersion: ref.SourceAssetID,
		Changes:    info.ChangedFields,
	}, nil
}
