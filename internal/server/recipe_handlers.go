package server

import (
	"recipeexchange/internal/models"
	"recipeexchange/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createRecipeRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Ingredients  []models.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	PrepTime     int                 `json:"prepTime"`
	CookTime     int                 `json:"cookTime"`
	Servings     int                 `json:"servings"`
	Difficulty   string              `json:"difficulty"`
	Category     string              `json:"category"`
	Tags         []string            `json:"tags"`
	ImageURL     *string             `json:"imageUrl"`
}

// updateRecipeRequest mirrors createRecipeRequest with every field optional.
// An empty imageUrl clears the image.
type updateRecipeRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Ingredients  *[]models.Ingredient `json:"ingredients"`
	Instructions *[]string            `json:"instructions"`
	PrepTime     *int                 `json:"prepTime"`
	CookTime     *int                 `json:"cookTime"`
	Servings     *int                 `json:"servings"`
	Difficulty   *string              `json:"difficulty"`
	Category     *string              `json:"category"`
	Tags         *[]string            `json:"tags"`
	ImageURL     *string              `json:"imageUrl"`
}

func (r updateRecipeRequest) toPatch() models.RecipePatch {
	patch := models.RecipePatch{
		Title:        r.Title,
		Description:  r.Description,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		PrepTime:     r.PrepTime,
		CookTime:     r.CookTime,
		Servings:     r.Servings,
		Tags:         r.Tags,
		ImageURL:     r.ImageURL,
	}
	if r.Difficulty != nil {
		d := models.Difficulty(*r.Difficulty)
		patch.Difficulty = &d
	}
	if r.Category != nil {
		cat := models.Category(*r.Category)
		patch.Category = &cat
	}
	return patch
}

// GetCategories handles GET /api/recipes/categories
// @Summary List recipe categories
// @Tags recipes
// @Produce json
// @Success 200 {array} string
// @Router /recipes/categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(s.recipeService.Categories())
}

// GetRecipes handles GET /api/recipes
// @Summary List recipes, newest first
// @Tags recipes
// @Produce json
// @Param authorId query string false "Only recipes by this author"
// @Success 200 {array} models.RecipeView
// @Router /recipes [get]
func (s *Server) GetRecipes(c *fiber.Ctx) error {
	views, err := s.recipeService.GetAll(c.UserContext(), currentUserID(c), c.Query("authorId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// GetRecipe handles GET /api/recipes/:id
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path string true "Recipe ID"
// @Success 200 {object} models.RecipeView
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [get]
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	view, err := s.recipeService.GetByID(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetSavedRecipes handles GET /api/recipes/saved
// @Summary List the caller's saved recipes, most recently saved first
// @Tags recipes
// @Produce json
// @Success 200 {array} models.RecipeView
// @Failure 401 {object} models.ErrorResponse
// @Router /recipes/saved [get]
func (s *Server) GetSavedRecipes(c *fiber.Ctx) error {
	views, err := s.recipeService.GetSaved(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// CreateRecipe handles POST /api/recipes
// @Summary Create a recipe
// @Description The author's upvote is recorded automatically
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body createRecipeRequest true "Recipe"
// @Success 201 {object} models.RecipeView
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes [post]
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var req createRecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	view, err := s.recipeService.Create(c.UserContext(), service.CreateRecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		Difficulty:   models.Difficulty(req.Difficulty),
		Category:     models.Category(req.Category),
		Tags:         req.Tags,
		ImageURL:     req.ImageURL,
	}, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Location("/api/recipes/" + view.ID)
	return c.Status(fiber.StatusCreated).JSON(view)
}

// UpdateRecipe handles PUT /api/recipes/:id
// @Summary Partially update a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path string true "Recipe ID"
// @Param request body updateRecipeRequest true "Fields to change"
// @Success 200 {object} models.RecipeView
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [put]
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	var req updateRecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	view, err := s.recipeService.Update(c.UserContext(), c.Params("id"), req.toPatch(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// DeleteRecipe handles DELETE /api/recipes/:id
// @Summary Delete a recipe
// @Tags recipes
// @Param id path string true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [delete]
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	if err := s.recipeService.Delete(c.UserContext(), c.Params("id"), currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VoteRecipe handles POST /api/recipes/:id/vote
// @Summary Vote on a recipe
// @Description Repeating the current vote, or sending null, removes it
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path string true "Recipe ID"
// @Param request body object{voteType=string} true "upvote, downvote or null"
// @Success 200 {object} models.VoteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/vote [post]
func (s *Server) VoteRecipe(c *fiber.Ctx) error {
	var req struct {
		VoteType *models.VoteType `json:"voteType"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	result, err := s.voteService.Vote(c.UserContext(), c.Params("id"), currentUserID(c), req.VoteType)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// ToggleSaveRecipe handles POST /api/recipes/:id/save
// @Summary Save or unsave a recipe
// @Tags recipes
// @Produce json
// @Param id path string true "Recipe ID"
// @Success 200 {object} object{isSaved=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/save [post]
func (s *Server) ToggleSaveRecipe(c *fiber.Ctx) error {
	saved, err := s.savedService.ToggleSave(c.UserContext(), c.Params("id"), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"isSaved": saved})
}
