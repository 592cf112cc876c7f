package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService owns credential checks and every token-driven account transition.
type AuthService struct {
	userRepo   repository.UserRepository
	now        func() time.Time
	bcryptCost int
	dummyHash  []byte
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.bcryptCost = cost }
}

func NewAuthService(userRepo repository.UserRepository, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against when the email is unknown so both failures cost a bcrypt check.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("recipe-exchange-dummy"), s.bcryptCost)
	return s
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Login verifies credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, models.NewInvalidCredentialsError()
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewInvalidCredentialsError()
	}
	if !user.EmailConfirmed {
		return nil, models.NewEmailUnconfirmedError()
	}
	return user, nil
}

// Register creates an unconfirmed account and returns its confirmation token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", models.NewConflictError("Email already in use.")
	}
	existing, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", models.NewConflictError("Username already taken.")
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	token, expiry, err := issueToken(s.now(), ConfirmationTokenTTL)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		ID:                           uuid.NewString(),
		Username:                     username,
		Email:                        email,
		PasswordHash:                 hash,
		AvatarURL:                    models.DefaultAvatarURL(email),
		EmailConfirmed:               false,
		EmailConfirmationToken:       token,
		EmailConfirmationTokenExpiry: expiry,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}
	return user, *token, nil
}

// ConfirmEmail marks the account confirmed. Already-confirmed accounts succeed
// without checking the token.
func (s *AuthService) ConfirmEmail(ctx context.Context, email, token string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewInvalidTokenError()
	}
	if user.EmailConfirmed {
		return nil
	}
	if err := checkToken(user.EmailConfirmationToken, user.EmailConfirmationTokenExpiry, token, s.now()); err != nil {
		return err
	}

	user.EmailConfirmed = true
	user.EmailConfirmationToken = nil
	user.EmailConfirmationTokenExpiry = nil
	return s.userRepo.Update(ctx, user)
}

// RequestPasswordReset issues a reset token. Unknown emails return (nil, "", nil).
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil || user == nil {
		return nil, "", err
	}

	token, expiry, err := issueToken(s.now(), PasswordResetTokenTTL)
	if err != nil {
		return nil, "", err
	}
	user.PasswordResetToken = token
	user.PasswordResetTokenExpiry = expiry
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", err
	}
	return user, *token, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewInvalidTokenError()
	}
	if err := checkToken(user.PasswordResetToken, user.PasswordResetTokenExpiry, token, s.now()); err != nil {
		return err
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.PasswordResetToken = nil
	user.PasswordResetTokenExpiry = nil
	return s.userRepo.Update(ctx, user)
}

// ResendConfirmation reissues the confirmation token. Unknown or already
// confirmed accounts return (nil, "", nil).
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil || user == nil || user.EmailConfirmed {
		return nil, "", err
	}

	token, expiry, err := issueToken(s.now(), ConfirmationTokenTTL)
	if err != nil {
		return nil, "", err
	}
	user.EmailConfirmationToken = token
	user.EmailConfirmationTokenExpiry = expiry
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", err
	}
	return user, *token, nil
}

// RequestEmailChange stores newEmail as pending. The live email is unchanged
// until ConfirmEmailChange.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail string) (*models.User, string, error) {
	newEmail = strings.TrimSpace(newEmail)
	if err := validation.ValidateEmail(newEmail); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.Email == newEmail {
		return nil, "", models.NewValidationError("New email must be different from the current email.")
	}
	taken, err := s.userRepo.EmailTaken(ctx, newEmail, userID)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", models.NewConflictError("Email already in use.")
	}

	token, expiry, err := issueToken(s.now(), EmailChangeTokenTTL)
	if err != nil {
		return nil, "", err
	}
	user.PendingEmail = &newEmail
	user.EmailChangeToken = token
	user.EmailChangeTokenExpiry = expiry
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", err
	}
	return user, *token, nil
}

// ConfirmEmailChange promotes the pending email after re-checking that no
// other account claimed it in the meantime.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID, token string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PendingEmail == nil {
		return nil, models.NewInvalidTokenError()
	}
	if err := checkToken(user.EmailChangeToken, user.EmailChangeTokenExpiry, token, s.now()); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.EmailTaken(ctx, *user.PendingEmail, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Email already in use.")
	}

	user.Email = *user.PendingEmail
	user.PendingEmail = nil
	user.EmailChangeToken = nil
	user.EmailChangeTokenExpiry = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, user.Username)
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return models.NewInvalidCredentialsError()
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.userRepo.Update(ctx, user)
}

// GetByID returns the account for a session subject.
func (s *AuthService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("Password is too long.")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}
