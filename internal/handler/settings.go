package handler

import (
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/model"
	"github.com/assetforge/api/internal/store"
	"github.com/assetforge/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	projects  *store.ProjectStore
	validator *validator.Validate
}

func NewSettingsHandler(projects *store.ProjectStore, v *validator.Validate) *SettingsHandler {
	return &SettingsHandler{
		projects:  projects,
		validator: v,
	}
}

// SetTripoKey handles PUT /api/settings/tripo-key
// @Summary      Store provider API key
// @Description  Save the caller's own Tripo API key, overriding the process-wide key
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        request body model.SettingsRequest true "Settings request"
// @Success      200 {object} model.SettingsResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/settings/tripo-key [put]
func (h *SettingsHandler) SetTripoKey(c *fiber.Ctx) error {
	var req model.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	userID := middleware.GetUserID(c)
	if err := h.projects.SetTripoKey(c.Context(), userID, req.TripoAPIKey); err != nil {
		return response.ServiceError(c, "Failed to save API key")
	}

	return response.OK(c, model.SettingsResponse{HasTripoAPIKey: true})
}

// Get handles GET /api/settings
// @Summary      Get settings
// @Description  Report whether the caller has a provider key stored. The key itself is never returned.
// @Tags         Settings
// @Produce      json
// @Success      200 {object} model.SettingsResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/settings [get]
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	key, err := h.projects.GetTripoKey(c.Context(), userID)
	if err != nil {
		return response.ServiceError(c, "Failed to load settings")
	}

	return response.OK(c, model.SettingsResponse{HasTripoAPIKey: key != ""})
}
