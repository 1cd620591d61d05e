package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/assetforge/api/internal/client"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/store"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

// ExportService mirrors finished models into durable object storage.
// Provider URLs expire after a while; an exported copy does not.
type ExportService struct {
	assets     *store.AssetStore
	projects   *store.ProjectStore
	storage    client.StorageClient // nil when R2 is not configured
	httpClient *http.Client
}

func NewExportService(assets *store.AssetStore, projects *store.ProjectStore, storage client.StorageClient) *ExportService {
	return &ExportService{
		assets:   assets,
		projects: projects,
		storage:  storage,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ExportAsset copies the asset's best model into storage under a name
// derived from the record's display name. Without storage configured the
// provider URL is passed through unmirrored.
func (s *ExportService) ExportAsset(ctx context.Context, userID string, req *model.ExportAssetRequest) (*model.ExportAssetResponse, error) {
	project, err := s.projects.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFoundErr("project not found")
	}
	if project.OwnerID != userID {
		return nil, forbiddenErr("project belongs to another user")
	}

	rec, err := s.assets.GetByKey(ctx, req.ProjectID, req.AssetID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFoundErr("asset not found")
	}

	sourceURL := rec.BestModelURL()
	if sourceURL == "" {
		return nil, preconditionErr("asset has no generated model to export")
	}

	fileName := exportFileName(rec)

	if s.storage == nil {
		log.Println("Export: storage not configured, returning provider URL")
		return &model.ExportAssetResponse{
			FileURL:  sourceURL,
			FileName: fileName,
			Mirrored: false,
		}, nil
	}

	body, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	key := fmt.Sprintf("exports/%s/%s", req.ProjectID, fileName)
	fileURL, err := s.storage.Upload(ctx, key, body, "model/gltf-binary")
	if err != nil {
		return nil, fmt.Errorf("failed to mirror model: %w", err)
	}

	log.Printf("Exported asset %s to %s", rec.ID, key)
	return &model.ExportAssetResponse{
		FileURL:  fileURL,
		Key:      key,
		FileName: fileName,
		Mirrored: true,
	}, nil
}

// fetch downloads the model from the provider's temporary URL.
func (s *ExportService) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download model: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &client.UpstreamError{StatusCode: resp.StatusCode, Body: "model download failed"}
	}
	return resp.Body, nil
}

// exportFileName prefers the human label over the slug, normalized for use
// as a file name.
func exportFileName(rec *model.AssetRecord) string {
	name := rec.Name
	if name == "" {
		name = rec.AssetID
	}
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = rec.ID
	}
	return slug + ".glb"
}
