// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

var units = []string{"g", "kg", "ml", "l", "tsp", "tbsp", "cup", "pinch", ""}

// Factory builds domain entities with gofakeit. Users are persisted directly;
// recipes are returned as service input so the caller creates them through
// the recipe service and gets the author's upvote.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	passwordHash string
	nextUser     int
}

// NewFactory hashes password once with cost and seeds the faker with randSeed.
// A zero randSeed picks a random seed.
func NewFactory(db *gorm.DB, password string, cost int, randSeed int64) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, faker: gofakeit.New(randSeed), passwordHash: string(hash)}, nil
}

// BuildUser constructs a confirmed user. Usernames carry a counter so repeated
// calls never collide.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.nextUser++
	base := usernameUnsafe.ReplaceAllString(f.faker.Username(), "")
	if len(base) > 24 {
		base = base[:24]
	}
	username := fmt.Sprintf("%s_%d", strings.ToLower(base), f.nextUser)
	email := username + "@example.com"

	user := &models.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		PasswordHash:   f.passwordHash,
		AvatarURL:      models.DefaultAvatarURL(email),
		Bio:            f.faker.Sentence(10),
		EmailConfirmed: true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := repository.NewUserRepository(f.db).Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// BuildRecipe returns a valid recipe in a random category.
func (f *Factory) BuildRecipe(overrides ...func(*service.CreateRecipeInput)) service.CreateRecipeInput {
	category := models.Categories[f.faker.Number(0, len(models.Categories)-1)]
	difficulties := []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}

	ingredients := make([]models.Ingredient, f.faker.Number(3, 8))
	for i := range ingredients {
		name := f.faker.Vegetable()
		if f.faker.Bool() {
			name = f.faker.Fruit()
		}
		ingredients[i] = models.Ingredient{
			Name:   strings.ToLower(name),
			Amount: fmt.Sprintf("%d", f.faker.Number(1, 500)),
			Unit:   f.faker.RandomString(units),
		}
	}

	steps := make([]string, f.faker.Number(2, 6))
	for i := range steps {
		steps[i] = f.faker.Sentence(f.faker.Number(6, 14))
	}

	tags := make([]string, f.faker.Number(0, 4))
	for i := range tags {
		tags[i] = strings.ToLower(f.faker.Adjective())
	}

	in := service.CreateRecipeInput{
		Title:        f.dishName(category),
		Description:  f.faker.Paragraph(1, 3, 12, " "),
		Ingredients:  ingredients,
		Instructions: steps,
		PrepTime:     f.faker.Number(0, 60),
		CookTime:     f.faker.Number(0, 180),
		Servings:     f.faker.Number(1, 8),
		Difficulty:   difficulties[f.faker.Number(0, len(difficulties)-1)],
		Category:     category,
		Tags:         tags,
	}
	if f.faker.Bool() {
		img := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
		in.ImageURL = &img
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

func (f *Factory) dishName(category models.Category) string {
	switch category {
	case models.CategoryBreakfast:
		return f.faker.Breakfast()
	case models.CategoryLunch:
		return f.faker.Lunch()
	case models.CategoryDinner:
		return f.faker.Dinner()
	case models.CategoryDessert:
		return f.faker.Dessert()
	case models.CategorySnack:
		return f.faker.Snack()
	case models.CategoryBeverage:
		return f.faker.Drink()
	default:
		return fmt.Sprintf("%s %s", f.faker.Adjective(), strings.ToLower(f.faker.Vegetable()))
	}
}

// Pick reports true with probability percent/100.
func (f *Factory) Pick(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}

// PickVote returns an upvote three times out of four.
func (f *Factory) PickVote() models.VoteType {
	if f.Pick(75) {
		return models.Upvote
	}
	return models.Downvote
}
