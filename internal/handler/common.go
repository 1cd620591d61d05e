package handler

import (
	"errors"

	"github.com/assetforge/api/internal/client"
	"github.com/assetforge/api/internal/service"
	"github.com/assetforge/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// respondError maps typed service and upstream errors onto HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case service.KindValidation:
			return response.ValidationError(c, svcErr.Message, nil)
		case service.KindNotFound:
			return response.NotFound(c, svcErr.Message)
		case service.KindForbidden:
			return response.Forbidden(c, svcErr.Message)
		case service.KindPrecondition:
			return response.PreconditionFailed(c, svcErr.Message)
		case service.KindConfig:
			return response.ConfigError(c, svcErr.Message)
		}
	}

	var upErr *client.UpstreamError
	if errors.As(err, &upErr) {
		return response.UpstreamError(c, "Provider request failed", fiber.Map{
			"status": upErr.StatusCode,
		})
	}

	return response.ServiceError(c, err.Error())
}
