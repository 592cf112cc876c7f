package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:username
// @Summary Public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfile(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/auth/profile
// @Summary Update the caller's bio
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{bio=string} true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Bio string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req.Bio)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}

// UpdateAvatar handles PUT /api/auth/avatar
// @Summary Update the caller's avatar
// @Description A null or empty avatarUrl restores the generated default
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{avatarUrl=string} true "Avatar URL"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/avatar [put]
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	var req struct {
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.userService.UpdateAvatar(c.UserContext(), currentUserID(c), req.AvatarURL)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}
