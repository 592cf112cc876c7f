package server

import (
	"io"

	"recipeexchange/internal/models"
	"recipeexchange/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/upload
// @Summary Upload a recipe or avatar image
// @Description Stores the image and a WebP preview
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param file formData file true "Image (jpg, jpeg, png, gif, webp)"
// @Success 200 {object} service.UploadResult
// @Failure 400 {object} models.ErrorResponse
// @Router /upload [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file provided"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	result, err := s.uploadService.Upload(c.UserContext(), service.UploadImageInput{
		UserID:   currentUserID(c),
		Filename: file.Filename,
		Content:  content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
