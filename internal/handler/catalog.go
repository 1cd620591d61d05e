package handler

import (
	"github.com/assetforge/api/internal/client"
	"github.com/assetforge/api/internal/middleware"
	"github.com/assetforge/api/internal/store"
	"github.com/assetforge/api/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	catalog  *client.ModelCatalog
	projects *store.ProjectStore
}

func NewCatalogHandler(catalog *client.ModelCatalog, projects *store.ProjectStore) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		projects: projects,
	}
}

// Models handles GET /api/models-3d
// @Summary      List 3D generation models
// @Description  Provider model catalog, cached process-wide with a TTL
// @Tags         Catalog
// @Produce      json
// @Param        provider query string false "Provider name" default(tripo)
// @Success      200 {array} client.CatalogModel
// @Failure      401 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/models-3d [get]
func (h *CatalogHandler) Models(c *fiber.Ctx) error {
	provider := c.Query("provider", "tripo")

	// The caller's own key is preferred when stored; the client falls back
	// to the process-wide key on an empty string.
	apiKey, err := h.projects.GetTripoKey(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, "Failed to load settings")
	}

	models, err := h.catalog.Models(c.Context(), provider, apiKey)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, models)
}
