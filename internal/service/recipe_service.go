package service

import (
	"context"
	"strings"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/models"
	"recipeexchange/internal/notifications"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// RecipeService is the content store: author-scoped recipe CRUD and
// viewer-annotated reads.
type RecipeService struct {
	db        *gorm.DB
	projector *Projector
	events    EventPublisher
}

type CreateRecipeInput struct {
	Title        string
	Description  string
	Ingredients  []models.Ingredient
	Instructions []string
	PrepTime     int
	CookTime     int
	Servings     int
	Difficulty   models.Difficulty
	Category     models.Category
	Tags         []string
	ImageURL     *string
}

func NewRecipeService(db *gorm.DB, projector *Projector, events EventPublisher) *RecipeService {
	return &RecipeService{db: db, projector: projector, events: events}
}

// Categories lists the supported recipe categories in display order.
func (s *RecipeService) Categories() []string {
	out := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, string(c))
	}
	return out
}

// Create stores the recipe together with the author's own upvote, so every
// recipe starts at a score of 1.
func (s *RecipeService) Create(ctx context.Context, in CreateRecipeInput, authorID string) (*models.RecipeView, error) {
	span, ctx := observability.StartServiceSpan(ctx, "RecipeService", "Create", attribute.String("author.id", authorID))
	defer span.End()

	if err := validateCreateRecipe(in); err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
		Difficulty:   in.Difficulty,
		Category:     in.Category,
		Tags:         in.Tags,
		AuthorID:     authorID,
	}
	if in.ImageURL != nil && *in.ImageURL != "" {
		img := *in.ImageURL
		recipe.ImageURL = &img
	}
	if recipe.Ingredients == nil {
		recipe.Ingredients = []models.Ingredient{}
	}
	if recipe.Instructions == nil {
		recipe.Instructions = []string{}
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeRepo := repository.NewRecipeRepository(tx)
		if err := recipeRepo.Create(ctx, recipe); err != nil {
			return err
		}
		vote := &models.Vote{UserID: authorID, RecipeID: recipe.ID, VoteType: models.Upvote}
		if err := repository.NewVoteRepository(tx).Create(ctx, vote); err != nil {
			return err
		}
		score, err := recipeRepo.AdjustScore(ctx, recipe.ID, 1)
		if err != nil {
			return err
		}
		recipe.VoteScore = score
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	invalidateAuthorProfile(ctx, s.db, authorID)
	observability.RecipesTotal.WithLabelValues("created").Inc()
	publishEvent(ctx, s.events, notifications.RecipeEvent{Type: notifications.EventCreated, RecipeID: recipe.ID, VoteScore: &recipe.VoteScore})

	return s.projector.ProjectOne(ctx, recipe, authorID)
}

// Update applies the present fields of patch. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, id string, patch models.RecipePatch, userID string) (*models.RecipeView, error) {
	span, ctx := observability.StartServiceSpan(ctx, "RecipeService", "Update", attribute.String("recipe.id", id))
	defer span.End()

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.ImageURL != nil && *patch.ImageURL == "" {
		patch.ImageURL = nil
		patch.ClearImage = true
	}

	var recipe *models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeRepo := repository.NewRecipeRepository(tx)
		var err error
		recipe, err = recipeRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if recipe.AuthorID != userID {
			return models.NewForbiddenError("You can only edit your own recipes.")
		}
		if err := validateRecipePatch(patch); err != nil {
			return err
		}
		patch.Apply(recipe)
		return recipeRepo.Update(ctx, recipe)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	cache.InvalidateRecipe(ctx, id)
	observability.RecipesTotal.WithLabelValues("updated").Inc()
	publishEvent(ctx, s.events, notifications.RecipeEvent{Type: notifications.EventUpdated, RecipeID: id})

	return s.projector.ProjectOne(ctx, recipe, userID)
}

// Delete removes the recipe with its votes and saves. Only the author may delete.
func (s *RecipeService) Delete(ctx context.Context, id, userID string) error {
	span, ctx := observability.StartServiceSpan(ctx, "RecipeService", "Delete", attribute.String("recipe.id", id))
	defer span.End()

	var authorID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeRepo := repository.NewRecipeRepository(tx)
		recipe, err := recipeRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if recipe.AuthorID != userID {
			return models.NewForbiddenError("You can only delete your own recipes.")
		}
		authorID = recipe.AuthorID
		if err := repository.NewVoteRepository(tx).DeleteByRecipe(ctx, id); err != nil {
			return err
		}
		if err := repository.NewSavedRecipeRepository(tx).DeleteByRecipe(ctx, id); err != nil {
			return err
		}
		return recipeRepo.Delete(ctx, id)
	})
	if err != nil {
		span.SetError(err)
		return err
	}

	cache.InvalidateRecipe(ctx, id)
	invalidateAuthorProfile(ctx, s.db, authorID)
	observability.RecipesTotal.WithLabelValues("deleted").Inc()
	publishEvent(ctx, s.events, notifications.RecipeEvent{Type: notifications.EventDeleted, RecipeID: id})
	return nil
}

// GetAll lists recipes newest first, optionally for one author.
func (s *RecipeService) GetAll(ctx context.Context, viewerID, authorID string) ([]models.RecipeView, error) {
	recipes, err := repository.NewRecipeRepository(s.db).List(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, recipes, viewerID)
}

func (s *RecipeService) GetByID(ctx context.Context, id, viewerID string) (*models.RecipeView, error) {
	recipe, err := repository.NewRecipeRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.projector.ProjectOne(ctx, recipe, viewerID)
}

// GetSaved lists the viewer's saved recipes, most recently saved first.
func (s *RecipeService) GetSaved(ctx context.Context, viewerID string) ([]models.RecipeView, error) {
	recipes, err := repository.NewRecipeRepository(s.db).ListSavedBy(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(ctx, recipes, viewerID)
}

// invalidateAuthorProfile drops the cached profile whose recipe count or
// total score just changed.
func invalidateAuthorProfile(ctx context.Context, db *gorm.DB, authorID string) {
	if cache.GetClient() == nil {
		return
	}
	author, err := repository.NewUserRepository(db).GetByID(ctx, authorID)
	if err != nil {
		return
	}
	cache.InvalidateProfile(ctx, author.Username)
}

func validateCreateRecipe(in CreateRecipeInput) error {
	checks := []error{
		validation.ValidateTitle(in.Title),
		validation.ValidateDescription(in.Description),
		validation.ValidateIngredients(in.Ingredients),
		validation.ValidateInstructions(in.Instructions),
		validation.ValidateMinutes("prepTime", in.PrepTime),
		validation.ValidateMinutes("cookTime", in.CookTime),
		validation.ValidateServings(in.Servings),
		validation.ValidateDifficulty(in.Difficulty),
		validation.ValidateCategory(in.Category),
		validation.ValidateTags(in.Tags),
	}
	if in.ImageURL != nil && *in.ImageURL != "" {
		checks = append(checks, validation.ValidateImageURL(*in.ImageURL))
	}
	return firstValidationError(checks)
}

func validateRecipePatch(p models.RecipePatch) error {
	var checks []error
	if p.Title != nil {
		checks = append(checks, validation.ValidateTitle(*p.Title))
	}
	if p.Description != nil {
		checks = append(checks, validation.ValidateDescription(*p.Description))
	}
	if p.Ingredients != nil {
		checks = append(checks, validation.ValidateIngredients(*p.Ingredients))
	}
	if p.Instructions != nil {
		checks = append(checks, validation.ValidateInstructions(*p.Instructions))
	}
	if p.PrepTime != nil {
		checks = append(checks, validation.ValidateMinutes("prepTime", *p.PrepTime))
	}
	if p.CookTime != nil {
		checks = append(checks, validation.ValidateMinutes("cookTime", *p.CookTime))
	}
	if p.Servings != nil {
		checks = append(checks, validation.ValidateServings(*p.Servings))
	}
	if p.Difficulty != nil {
		checks = append(checks, validation.ValidateDifficulty(*p.Difficulty))
	}
	if p.Category != nil {
		checks = append(checks, validation.ValidateCategory(*p.Category))
	}
	if p.Tags != nil {
		checks = append(checks, validation.ValidateTags(*p.Tags))
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		checks = append(checks, validation.ValidateImageURL(*p.ImageURL))
	}
	return firstValidationError(checks)
}

func firstValidationError(checks []error) error {
	for _, err := range checks {
		if err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	return nil
}
