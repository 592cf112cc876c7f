package seed

import (
	"context"
	"fmt"
	"log"

	"recipeexchange/internal/models"
	"recipeexchange/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "RecipeDemo2024!"

// Options configuration for the seeder
type Options struct {
	Users          int
	RecipesPerUser int
	// VotePercent and SavePercent are the chance that a user votes on or saves
	// another user's recipe.
	VotePercent int
	SavePercent int
	Password    string
	BcryptCost  int
	RandSeed    int64
}

// DefaultOptions seeds a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Users:          12,
		RecipesPerUser: 3,
		VotePercent:    40,
		SavePercent:    15,
		Password:       DemoPassword,
		BcryptCost:     bcrypt.DefaultCost,
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users   int
	Recipes int
	Votes   int
	Saves   int
}

// Seeder writes demo data through the same services the API uses, so seeded
// scores and saves obey the voting and saving rules.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	recipes *service.RecipeService
	votes   *service.VoteService
	saves   *service.SavedRecipeService
}

// NewSeeder creates a seeder. Zero-valued options fall back to DefaultOptions.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	def := DefaultOptions()
	if opts.Password == "" {
		opts.Password = def.Password
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = def.BcryptCost
	}
	return &Seeder{
		db:      db,
		opts:    opts,
		recipes: service.NewRecipeService(db, service.NewProjector(db), nil),
		votes:   service.NewVoteService(db, nil),
		saves:   service.NewSavedRecipeService(db, nil),
	}
}

// ClearAll removes every recipe, vote, save and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.SavedRecipe{}, &models.Vote{}, &models.Recipe{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run generates users, their recipes, and votes and saves from other users.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	factory, err := NewFactory(s.db, s.opts.Password, s.opts.BcryptCost, s.opts.RandSeed)
	if err != nil {
		return nil, err
	}

	log.Printf("Seeding %d users with %d recipes each...", s.opts.Users, s.opts.RecipesPerUser)
	summary := &Summary{}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user, err := factory.CreateUser(ctx)
		if err != nil {
			return summary, err
		}
		users = append(users, user)
		summary.Users++
	}

	var recipes []*models.RecipeView
	for _, user := range users {
		for i := 0; i < s.opts.RecipesPerUser; i++ {
			view, err := s.recipes.Create(ctx, factory.BuildRecipe(), user.ID)
			if err != nil {
				return summary, fmt.Errorf("create recipe for %s: %w", user.Username, err)
			}
			recipes = append(recipes, view)
			summary.Recipes++
			// The author's own upvote.
			summary.Votes++
		}
	}

	for _, user := range users {
		for _, recipe := range recipes {
			if recipe.AuthorID == user.ID {
				continue
			}
			if factory.Pick(s.opts.VotePercent) {
				vote := factory.PickVote()
				if _, err := s.votes.Vote(ctx, recipe.ID, user.ID, &vote); err != nil {
					return summary, fmt.Errorf("vote on %s: %w", recipe.ID, err)
				}
				summary.Votes++
			}
			if factory.Pick(s.opts.SavePercent) {
				if _, err := s.saves.ToggleSave(ctx, recipe.ID, user.ID); err != nil {
					return summary, fmt.Errorf("save %s: %w", recipe.ID, err)
				}
				summary.Saves++
			}
		}
	}

	log.Printf("Seeded %d users, %d recipes, %d votes, %d saves", summary.Users, summary.Recipes, summary.Votes, summary.Saves)
	return summary, nil
}
