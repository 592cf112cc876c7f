package repository

import (
	"context"
	"errors"
	"fmt"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxRecipeIDAttempts = 3

// AuthorStats aggregates an author's recipes.
type AuthorStats struct {
	RecipeCount    int64
	TotalVoteScore int64
}

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	GetByID(ctx context.Context, id string) (*models.Recipe, error)
	GetForUpdate(ctx context.Context, id string) (*models.Recipe, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Recipe, error)
	List(ctx context.Context, authorID string) ([]models.Recipe, error)
	ListSavedBy(ctx context.Context, userID string) ([]models.Recipe, error)
	Update(ctx context.Context, recipe *models.Recipe) error
	Delete(ctx context.Context, id string) error
	AdjustScore(ctx context.Context, id string, delta int) (int, error)
	AuthorStats(ctx context.Context, authorID string) (AuthorStats, error)
}

type recipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository returns a new RecipeRepository implementation.
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// Create assigns a fresh short ID when none is set and inserts the recipe.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	if recipe.ID == "" {
		id, err := r.freeRecipeID(ctx)
		if err != nil {
			return err
		}
		recipe.ID = id
	}
	if err := r.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *recipeRepository) freeRecipeID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxRecipeIDAttempts; attempt++ {
		id, err := models.NewRecipeID()
		if err != nil {
			return "", models.NewInternalError(err)
		}
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", models.NewInternalError(err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", models.NewInternalError(fmt.Errorf("no free recipe id after %d attempts", maxRecipeIDAttempts))
}

// GetByID reads through the recipe cache. Use GetForUpdate inside transactions.
func (r *recipeRepository) GetByID(ctx context.Context, id string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := cache.Aside(ctx, cache.RecipeKey(id), &recipe, cache.RecipeTTL, func() error {
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recipe).Error; err != nil {
			return notFoundOr(err, "Recipe", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// GetForUpdate reads the recipe and locks its row until the transaction ends.
func (r *recipeRepository) GetForUpdate(ctx context.Context, id string) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, notFoundOr(err, "Recipe", id)
	}
	return &recipe, nil
}

func (r *recipeRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recipes []models.Recipe
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

// List returns recipes newest first, optionally limited to one author.
func (r *recipeRepository) List(ctx context.Context, authorID string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if authorID != "" {
		q = q.Where("author_id = ?", authorID)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

// ListSavedBy returns the recipes userID saved, most recently saved first.
func (r *recipeRepository) ListSavedBy(ctx context.Context, userID string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := r.db.WithContext(ctx).
		Joins("JOIN saved_recipes ON saved_recipes.recipe_id = recipes.id").
		Where("saved_recipes.user_id = ?", userID).
		Order("saved_recipes.created_at DESC").
		Order("saved_recipes.id DESC").
		Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe) error {
	if err := r.db.WithContext(ctx).Save(recipe).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *recipeRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Recipe{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Recipe", id)
	}
	return nil
}

// AdjustScore applies delta in place and returns the new score.
func (r *recipeRepository) AdjustScore(ctx context.Context, id string, delta int) (int, error) {
	if delta != 0 {
		result := r.db.WithContext(ctx).
			Model(&models.Recipe{}).
			Where("id = ?", id).
			UpdateColumn("vote_score", gorm.Expr("vote_score + ?", delta))
		if result.Error != nil {
			return 0, models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return 0, models.NewNotFoundError("Recipe", id)
		}
	}

	var score int
	if err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ?", id).
		Select("vote_score").
		Scan(&score).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return score, nil
}

func (r *recipeRepository) AuthorStats(ctx context.Context, authorID string) (AuthorStats, error) {
	var row struct {
		RecipeCount    int64
		TotalVoteScore int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Select("COUNT(*) AS recipe_count, COALESCE(SUM(vote_score), 0) AS total_vote_score").
		Where("author_id = ?", authorID).
		Scan(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return AuthorStats{}, models.NewInternalError(err)
	}
	return AuthorStats{RecipeCount: row.RecipeCount, TotalVoteScore: row.TotalVoteScore}, nil
}
