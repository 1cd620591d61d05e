package handler

import (
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/service"
	"github.com/assetforge/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type VersionHandler struct {
	service *service.VersionService
}

func NewVersionHandler(svc *service.VersionService) *VersionHandler {
	return &VersionHandler{service: svc}
}

// Check handles GET /api/projects/:projectId/asset-versions/check
// @Summary      Check for asset updates
// @Description  Compare locked game-asset references against their live source assets
// @Tags         Versions
// @Produce      json
// @Param        projectId path string true "Project ID"
// @Success      200 {object} model.VersionCheckResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/{projectId}/asset-versions/check [get]
func (h *VersionHandler) Check(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	result, err := h.service.CheckProject(c.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}

// Sync handles POST /api/asset-refs/:refId/sync
// @Summary      Sync a game-asset reference
// @Description  Re-lock a reference onto the current version of its source asset
// @Tags         Versions
// @Produce      json
// @Param        refId path string true "Game asset reference ID"
// @Success      200 {object} model.SyncResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/asset-refs/{refId}/sync [post]
func (h *VersionHandler) Sync(c *fiber.Ctx) error {
	refID := c.Params("refId")
	if refID == "" {
		return response.ValidationError(c, "Ref ID is required", nil)
	}

	result, err := h.service.Sync(c.Context(), middleware.GetUserID(c), refID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}
