package repository

import (
	"context"

	"recipeexchange/internal/models"

	"gorm.io/gorm"
)

// SavedRecipeRepository defines persistence operations for the save registry.
type SavedRecipeRepository interface {
	Create(ctx context.Context, userID, recipeID string) error
	Delete(ctx context.Context, userID, recipeID string) (bool, error)
	Exists(ctx context.Context, userID, recipeID string) (bool, error)
	SavedIDs(ctx context.Context, userID string, recipeIDs []string) (map[string]bool, error)
	DeleteByRecipe(ctx context.Context, recipeID string) error
}

type savedRecipeRepository struct {
	db *gorm.DB
}

// NewSavedRecipeRepository returns a new SavedRecipeRepository implementation.
func NewSavedRecipeRepository(db *gorm.DB) SavedRecipeRepository {
	return &savedRecipeRepository{db: db}
}

func (r *savedRecipeRepository) Create(ctx context.Context, userID, recipeID string) error {
	saved := models.SavedRecipe{UserID: userID, RecipeID: recipeID}
	if err := r.db.WithContext(ctx).Create(&saved).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Recipe already saved.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the bookmark and reports whether one existed.
func (r *savedRecipeRepository) Delete(ctx context.Context, userID, recipeID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.SavedRecipe{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *savedRecipeRepository) Exists(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SavedRecipe{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// SavedIDs reports which of recipeIDs the user has saved.
func (r *savedRecipeRepository) SavedIDs(ctx context.Context, userID string, recipeIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" || len(recipeIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.SavedRecipe{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *savedRecipeRepository) DeleteByRecipe(ctx context.Context, recipeID string) error {
	if err := r.db.WithContext(ctx).Where("recipe_id = ?", recipeID).Delete(&models.SavedRecipe{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
