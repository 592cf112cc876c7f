package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"
	"recipeexchange/internal/service"
	"recipeexchange/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written dataset, usually loaded from YAML.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Recipes []RecipeFixture `yaml:"recipes"`
}

// UserFixture is a confirmed account. An empty password uses DemoPassword.
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
}

// RecipeFixture names its author, voters and savers by username.
type RecipeFixture struct {
	Author       string                     `yaml:"author"`
	Title        string                     `yaml:"title"`
	Description  string                     `yaml:"description"`
	Ingredients  []models.Ingredient        `yaml:"ingredients"`
	Instructions []string                   `yaml:"instructions"`
	PrepTime     int                        `yaml:"prepTime"`
	CookTime     int                        `yaml:"cookTime"`
	Servings     int                        `yaml:"servings"`
	Difficulty   models.Difficulty          `yaml:"difficulty"`
	Category     models.Category            `yaml:"category"`
	Tags         []string                   `yaml:"tags"`
	ImageURL     string                     `yaml:"imageUrl"`
	Votes        map[string]models.VoteType `yaml:"votes"`
	SavedBy      []string                   `yaml:"savedBy"`
}

// LoadFixtures decodes YAML fixtures, rejecting unknown keys.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fx Fixtures
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &fx, nil
}

// LoadFixturesFile reads fixtures from path.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// ApplyFixtures creates the fixture users, then their recipes, votes and saves.
func (s *Seeder) ApplyFixtures(ctx context.Context, fx *Fixtures) (*Summary, error) {
	summary := &Summary{}
	userRepo := repository.NewUserRepository(s.db)
	ids := make(map[string]string, len(fx.Users))

	for _, uf := range fx.Users {
		user, err := s.fixtureUser(uf)
		if err != nil {
			return summary, err
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return summary, fmt.Errorf("create user %s: %w", uf.Username, err)
		}
		ids[uf.Username] = user.ID
		summary.Users++
	}

	lookup := func(username string) (string, error) {
		id, ok := ids[username]
		if !ok {
			return "", fmt.Errorf("fixture references unknown user %q", username)
		}
		return id, nil
	}

	for _, rf := range fx.Recipes {
		authorID, err := lookup(rf.Author)
		if err != nil {
			return summary, err
		}
		in := service.CreateRecipeInput{
			Title:        rf.Title,
			Description:  rf.Description,
			Ingredients:  rf.Ingredients,
			Instructions: rf.Instructions,
			PrepTime:     rf.PrepTime,
			CookTime:     rf.CookTime,
			Servings:     rf.Servings,
			Difficulty:   rf.Difficulty,
			Category:     rf.Category,
			Tags:         rf.Tags,
		}
		if rf.ImageURL != "" {
			img := rf.ImageURL
			in.ImageURL = &img
		}
		view, err := s.recipes.Create(ctx, in, authorID)
		if err != nil {
			return summary, fmt.Errorf("create recipe %q: %w", rf.Title, err)
		}
		summary.Recipes++
		summary.Votes++

		for username, voteType := range rf.Votes {
			voterID, err := lookup(username)
			if err != nil {
				return summary, err
			}
			vt := voteType
			if _, err := s.votes.Vote(ctx, view.ID, voterID, &vt); err != nil {
				return summary, fmt.Errorf("vote by %s on %q: %w", username, rf.Title, err)
			}
			if voterID != authorID {
				summary.Votes++
			}
		}
		for _, username := range rf.SavedBy {
			saverID, err := lookup(username)
			if err != nil {
				return summary, err
			}
			if _, err := s.saves.ToggleSave(ctx, view.ID, saverID); err != nil {
				return summary, fmt.Errorf("save by %s of %q: %w", username, rf.Title, err)
			}
			summary.Saves++
		}
	}

	log.Printf("Applied fixtures: %d users, %d recipes, %d votes, %d saves", summary.Users, summary.Recipes, summary.Votes, summary.Saves)
	return summary, nil
}

func (s *Seeder) fixtureUser(uf UserFixture) (*models.User, error) {
	password := uf.Password
	if password == "" {
		password = s.opts.Password
	}
	if err := validation.ValidateUsername(uf.Username); err != nil {
		return nil, fmt.Errorf("fixture user %q: %w", uf.Username, err)
	}
	if err := validation.ValidateEmail(uf.Email); err != nil {
		return nil, fmt.Errorf("fixture user %q: %w", uf.Username, err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("fixture user %q: %w", uf.Username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", uf.Username, err)
	}
	return &models.User{
		ID:             uuid.NewString(),
		Username:       uf.Username,
		Email:          uf.Email,
		PasswordHash:   string(hash),
		AvatarURL:      models.DefaultAvatarURL(uf.Email),
		Bio:            uf.Bio,
		EmailConfirmed: true,
	}, nil
}
