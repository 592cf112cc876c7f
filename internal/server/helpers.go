package server

import (
	"errors"
	"log/slog"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/models"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError translates a domain error code into an HTTP status.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}

	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeInvalidCredentials:
		return fiber.StatusUnauthorized
	case models.CodeEmailUnconfirmed:
		return fiber.StatusForbidden
	case models.CodeInvalidToken, models.CodeTokenExpired:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Errors without a
// domain code are logged and answered as opaque internal errors.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", slog.String("error", err.Error()))
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

func badRequestBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// messageResponse is the body of endpoints that only acknowledge an action.
type messageResponse struct {
	Message string `json:"message"`
}
