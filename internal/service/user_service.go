package service

import (
	"context"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/validation"
)

type UserService struct {
	userRepo   repository.UserRepository
	recipeRepo repository.RecipeRepository
}

func NewUserService(userRepo repository.UserRepository, recipeRepo repository.RecipeRepository) *UserService {
	return &UserService{userRepo: userRepo, recipeRepo: recipeRepo}
}

// GetProfile returns the public profile with recipe stats. Profiles are
// cached briefly since vote scores move constantly.
func (s *UserService) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(username), &profile, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return models.NewNotFoundError("User", username)
		}
		stats, err := s.recipeRepo.AuthorStats(ctx, user.ID)
		if err != nil {
			return err
		}
		profile = models.Profile{
			UserResponse:   user.ToResponse(),
			RecipeCount:    stats.RecipeCount,
			TotalVoteScore: stats.TotalVoteScore,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID, bio string) (*models.User, error) {
	if err := validation.ValidateBio(bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Bio = bio
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, user.Username)
	return user, nil
}

// UpdateAvatar sets the avatar. A nil or empty URL restores the generated default.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, avatarURL *string) (*models.User, error) {
	if avatarURL != nil && *avatarURL != "" {
		if err := validation.ValidateImageURL(*avatarURL); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if avatarURL == nil || *avatarURL == "" {
		user.AvatarURL = models.DefaultAvatarURL(user.Email)
	} else {
		user.AvatarURL = *avatarURL
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, user.Username)
	return user, nil
}
