package handler

import (
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/service"
	"github.com/assetforge/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type ExportHandler struct {
	service   *service.ExportService
	validator *validator.Validate
}

func NewExportHandler(svc *service.ExportService, v *validator.Validate) *ExportHandler {
	return &ExportHandler{
		service:   svc,
		validator: v,
	}
}

// Asset handles POST /api/export/asset
// @Summary      Export asset model
// @Description  Mirror the asset's best available GLB into durable storage
// @Tags         Export
// @Accept       json
// @Produce      json
// @Param        request body model.ExportAssetRequest true "Export request"
// @Success      200 {object} model.ExportAssetResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/export/asset [post]
func (h *ExportHandler) Asset(c *fiber.Ctx) error {
	var req model.ExportAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.ExportAsset(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}
