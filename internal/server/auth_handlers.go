package server

import (
	"log/slog"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	msgRegistered        = "Registration successful. Please check your email to confirm your account."
	msgConfirmationSent  = "If an account with that email exists and is unconfirmed, a confirmation email has been sent."
	msgPasswordResetSent = "If an account with that email exists, a password reset link has been sent."
)

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate a confirmed user and start a cookie session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	observability.RecordAuthEvent("login", err)
	if err != nil {
		return respondServiceError(c, err)
	}

	if _, err := s.issueSession(c, user.ID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}

// Register handles POST /api/auth/register
// @Summary User registration
// @Description Create an unconfirmed account and send a confirmation email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Registration request"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	ctx := c.UserContext()
	user, token, err := s.authService.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	observability.RecordAuthEvent("register", err)
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.mailer.SendConfirmationEmail(ctx, user.Email, user.Username, token); err != nil {
		s.logMailFailure(c, "confirmation", err)
	}

	return c.Status(fiber.StatusCreated).JSON(messageResponse{Message: msgRegistered})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current session
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.revokeSession(c.UserContext(), currentSession(c)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", slog.String("error", err.Error()))
	}
	s.clearSessionCookie(c)
	observability.RecordAuthEvent("logout", nil)
	return c.JSON(messageResponse{Message: "Logged out."})
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.authService.GetByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user.ToResponse())
}

// ConfirmEmail handles POST /api/auth/confirm-email
// @Summary Confirm email address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,token=string} true "Confirmation token"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/confirm-email [post]
func (s *Server) ConfirmEmail(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	err := s.authService.ConfirmEmail(c.UserContext(), req.Email, req.Token)
	observability.RecordAuthEvent("confirm_email", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messageResponse{Message: "Email confirmed. You can now log in."})
}

// ResendConfirmation handles POST /api/auth/resend-confirmation
// @Summary Resend confirmation email
// @Description Always answers with the same message whether or not the account exists
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{message=string}
// @Router /auth/resend-confirmation [post]
func (s *Server) ResendConfirmation(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	ctx := c.UserContext()
	user, token, err := s.authService.ResendConfirmation(ctx, req.Email)
	observability.RecordAuthEvent("resend_confirmation", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user != nil {
		if err := s.mailer.SendConfirmationEmail(ctx, user.Email, user.Username, token); err != nil {
			s.logMailFailure(c, "confirmation", err)
		}
	}
	return c.JSON(messageResponse{Message: msgConfirmationSent})
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Summary Request a password reset
// @Description Always answers with the same message whether or not the account exists
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{message=string}
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	ctx := c.UserContext()
	user, token, err := s.authService.RequestPasswordReset(ctx, req.Email)
	observability.RecordAuthEvent("forgot_password", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user != nil {
		if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Username, token); err != nil {
			s.logMailFailure(c, "password_reset", err)
		}
	}
	return c.JSON(messageResponse{Message: msgPasswordResetSent})
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password with a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,token=string,newPassword=string} true "Reset request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	err := s.authService.ResetPassword(c.UserContext(), req.Email, req.Token, req.NewPassword)
	observability.RecordAuthEvent("reset_password", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messageResponse{Message: "Password has been reset. You can now log in."})
}

// ChangeEmail handles POST /api/auth/change-email
// @Summary Request an email change
// @Description Sends a confirmation link to the new address; the current email stays active until confirmed
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{newEmail=string} true "New email"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/change-email [post]
func (s *Server) ChangeEmail(c *fiber.Ctx) error {
	var req struct {
		NewEmail string `json:"newEmail"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	ctx := c.UserContext()
	user, token, err := s.authService.RequestEmailChange(ctx, currentUserID(c), req.NewEmail)
	observability.RecordAuthEvent("change_email", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user.PendingEmail != nil {
		if err := s.mailer.SendEmailChangeEmail(ctx, *user.PendingEmail, user.Username, token); err != nil {
			s.logMailFailure(c, "email_change", err)
		}
	}
	return c.JSON(messageResponse{Message: "A confirmation link has been sent to your new email address."})
}

// ConfirmEmailChange handles POST /api/auth/confirm-email-change
// @Summary Confirm an email change
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Email change token"
// @Success 200 {object} object{message=string,user=models.UserResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/confirm-email-change [post]
func (s *Server) ConfirmEmailChange(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	user, err := s.authService.ConfirmEmailChange(c.UserContext(), currentUserID(c), req.Token)
	observability.RecordAuthEvent("confirm_email_change", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Your email address has been updated.",
		"user":    user.ToResponse(),
	})
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{currentPassword=string,newPassword=string} true "Password change"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	err := s.authService.ChangePassword(c.UserContext(), currentUserID(c), req.CurrentPassword, req.NewPassword)
	observability.RecordAuthEvent("change_password", err)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messageResponse{Message: "Password changed."})
}

// logMailFailure records a mail delivery failure. The triggering operation has
// already committed, so the client still gets its normal answer.
func (s *Server) logMailFailure(c *fiber.Ctx, kind string, err error) {
	middleware.Logger.ErrorContext(c.UserContext(), "failed to send email",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}
