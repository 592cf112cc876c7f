package service

import (
	"context"

	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"

	"gorm.io/gorm"
)

// Projector renders recipes for a viewer. List projections cost one query
// each for authors, votes and saves regardless of list length.
type Projector struct {
	userRepo  repository.UserRepository
	voteRepo  repository.VoteRepository
	savedRepo repository.SavedRecipeRepository
}

func NewProjector(db *gorm.DB) *Projector {
	return &Projector{
		userRepo:  repository.NewUserRepository(db),
		voteRepo:  repository.NewVoteRepository(db),
		savedRepo: repository.NewSavedRecipeRepository(db),
	}
}

// BuildRecipeView assembles the external shape of one recipe.
func BuildRecipeView(recipe *models.Recipe, author *models.User, vote *models.VoteType, saved bool) models.RecipeView {
	view := models.RecipeView{
		ID:           recipe.ID,
		Title:        recipe.Title,
		Description:  recipe.Description,
		Ingredients:  recipe.Ingredients,
		Instructions: recipe.Instructions,
		PrepTime:     recipe.PrepTime,
		CookTime:     recipe.CookTime,
		Servings:     recipe.Servings,
		Difficulty:   recipe.Difficulty,
		Category:     recipe.Category,
		Tags:         recipe.Tags,
		ImageURL:     recipe.ImageURL,
		AuthorID:     recipe.AuthorID,
		Author:       author.ToResponse(),
		CreatedAt:    recipe.CreatedAt,
		UpdatedAt:    recipe.UpdatedAt,
		VoteScore:    recipe.VoteScore,
		UserVote:     vote,
		IsSaved:      saved,
	}
	if view.Ingredients == nil {
		view.Ingredients = []models.Ingredient{}
	}
	if view.Instructions == nil {
		view.Instructions = []string{}
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	return view
}

// Project renders recipes in order for viewerID (empty for anonymous).
// Recipes whose author cannot be resolved are dropped.
func (p *Projector) Project(ctx context.Context, recipes []models.Recipe, viewerID string) ([]models.RecipeView, error) {
	views := make([]models.RecipeView, 0, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	recipeIDs := make([]string, 0, len(recipes))
	authorIDs := make([]string, 0, len(recipes))
	seenAuthor := make(map[string]struct{}, len(recipes))
	for i := range recipes {
		recipeIDs = append(recipeIDs, recipes[i].ID)
		if _, ok := seenAuthor[recipes[i].AuthorID]; !ok {
			seenAuthor[recipes[i].AuthorID] = struct{}{}
			authorIDs = append(authorIDs, recipes[i].AuthorID)
		}
	}

	authors, err := p.userRepo.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	authorByID := make(map[string]*models.User, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = &authors[i]
	}

	votes, err := p.voteRepo.ForUser(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	saved, err := p.savedRepo.SavedIDs(ctx, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}

	for i := range recipes {
		author, ok := authorByID[recipes[i].AuthorID]
		if !ok {
			continue
		}
		var vote *models.VoteType
		if v, ok := votes[recipes[i].ID]; ok {
			vote = &v
		}
		views = append(views, BuildRecipeView(&recipes[i], author, vote, saved[recipes[i].ID]))
	}
	return views, nil
}

// ProjectOne renders a single recipe, failing NotFound when its author is gone.
func (p *Projector) ProjectOne(ctx context.Context, recipe *models.Recipe, viewerID string) (*models.RecipeView, error) {
	views, err := p.Project(ctx, []models.Recipe{*recipe}, viewerID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, models.NewNotFoundError("Recipe", recipe.ID)
	}
	return &views[0], nil
}
