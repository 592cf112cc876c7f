package repository

import (
	"context"
	"errors"

	"recipeexchange/internal/models"

	"gorm.io/gorm"
)

// VoteRepository defines persistence operations for the voting ledger.
type VoteRepository interface {
	Get(ctx context.Context, userID, recipeID string) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateType(ctx context.Context, id uint, voteType models.VoteType) error
	Delete(ctx context.Context, id uint) error
	ForUser(ctx context.Context, userID string, recipeIDs []string) (map[string]models.VoteType, error)
	DeleteByRecipe(ctx context.Context, recipeID string) error
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Get returns the user's vote on the recipe, or nil when there is none.
func (r *voteRepository) Get(ctx context.Context, userID, recipeID string) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Vote already recorded.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *voteRepository) UpdateType(ctx context.Context, id uint, voteType models.VoteType) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("id = ?", id).
		UpdateColumn("vote_type", voteType).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vote{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ForUser maps recipe ID to the user's vote for every voted recipe in recipeIDs.
func (r *voteRepository) ForUser(ctx context.Context, userID string, recipeIDs []string) (map[string]models.VoteType, error) {
	out := make(map[string]models.VoteType)
	if userID == "" || len(recipeIDs) == 0 {
		return out, nil
	}
	var votes []models.Vote
	if err := r.db.WithContext(ctx).
		Select("recipe_id", "vote_type").
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Find(&votes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, v := range votes {
		out[v.RecipeID] = v.VoteType
	}
	return out, nil
}

func (r *voteRepository) DeleteByRecipe(ctx context.Context, recipeID string) error {
	if err := r.db.WithContext(ctx).Where("recipe_id = ?", recipeID).Delete(&models.Vote{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
