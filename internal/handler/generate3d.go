package handler

import (
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/service"
	"github.com/assetforge/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type Generate3DHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewGenerate3DHandler(svc *service.GenerationService, v *validator.Validate) *Generate3DHandler {
	return &Generate3DHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate-3d
// @Summary      Generate draft 3D model
// @Description  Submit a text prompt to the provider and track the draft task
// @Tags         Generate3D
// @Accept       json
// @Produce      json
// @Param        request body model.Generate3DRequest true "Draft generation request"
// @Success      202 {object} model.GenerateTaskResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate-3d [post]
func (h *Generate3DHandler) Generate(c *fiber.Ctx) error {
	var req model.Generate3DRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartDraft(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, result)
}

// Rig handles POST /api/generate-3d/rig
// @Summary      Auto-rig a draft model
// @Description  Submit the stored draft task for skeleton rigging
// @Tags         Generate3D
// @Accept       json
// @Produce      json
// @Param        request body model.Rig3DRequest true "Rig request"
// @Success      202 {object} model.GenerateTaskResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate-3d/rig [post]
func (h *Generate3DHandler) Rig(c *fiber.Ctx) error {
	var req model.Rig3DRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartRig(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, result)
}

// Animate handles POST /api/generate-3d/animate
// @Summary      Animate a rigged model
// @Description  Retarget a preset animation onto the asset's rigged skeleton
// @Tags         Generate3D
// @Accept       json
// @Produce      json
// @Param        request body model.Animate3DRequest true "Animate request"
// @Success      202 {object} model.GenerateTaskResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate-3d/animate [post]
func (h *Generate3DHandler) Animate(c *fiber.Ctx) error {
	var req model.Animate3DRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartAnimate(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/generate-3d/:taskId/status
// @Summary      Poll task status
// @Description  Fetch provider task state and apply any resulting transition
// @Tags         Generate3D
// @Produce      json
// @Param        taskId path string true "Provider task ID"
// @Success      200 {object} model.TaskStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate-3d/{taskId}/status [get]
func (h *Generate3DHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	result, err := h.service.PollTask(c.Context(), middleware.GetUserID(c), taskID)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, result)
}
