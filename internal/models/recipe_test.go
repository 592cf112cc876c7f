package models

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipeID(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-zA-Z0-9]{7}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := NewRecipeID()
		require.NoError(t, err)
		assert.Regexp(t, pattern, id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestRecipePatch_Apply(t *testing.T) {
	img := "/uploads/old.png"
	base := func() *Recipe {
		return &Recipe{
			Title:        "Pancakes",
			Description:  "Fluffy",
			Ingredients:  []Ingredient{{Name: "flour", Amount: "200", Unit: "g"}},
			Instructions: []string{"mix", "fry"},
			Servings:     2,
			Difficulty:   DifficultyEasy,
			Category:     CategoryBreakfast,
			Tags:         []string{"sweet"},
			ImageURL:     &img,
		}
	}

	t.Run("empty patch leaves recipe unchanged", func(t *testing.T) {
		r := base()
		patch := RecipePatch{}
		assert.True(t, patch.Empty())
		patch.Apply(r)
		assert.Equal(t, base(), r)
	})

	t.Run("only present fields are applied", func(t *testing.T) {
		r := base()
		title := "Crepes"
		servings := 4
		patch := RecipePatch{Title: &title, Servings: &servings}
		assert.False(t, patch.Empty())
		patch.Apply(r)
		assert.Equal(t, "Crepes", r.Title)
		assert.Equal(t, 4, r.Servings)
		assert.Equal(t, "Fluffy", r.Description)
		assert.Equal(t, []string{"mix", "fry"}, r.Instructions)
		require.NotNil(t, r.ImageURL)
		assert.Equal(t, img, *r.ImageURL)
	})

	t.Run("clear image removes it", func(t *testing.T) {
		r := base()
		RecipePatch{ClearImage: true}.Apply(r)
		assert.Nil(t, r.ImageURL)
	})

	t.Run("new image replaces old", func(t *testing.T) {
		r := base()
		next := "/uploads/new.png"
		RecipePatch{ImageURL: &next}.Apply(r)
		require.NotNil(t, r.ImageURL)
		assert.Equal(t, next, *r.ImageURL)
	})
}

func TestCategoryAndDifficulty_Valid(t *testing.T) {
	assert.Len(t, Categories, 7)
	assert.True(t, CategoryDessert.Valid())
	assert.False(t, Category("brunch").Valid())
	assert.True(t, DifficultyHard.Valid())
	assert.False(t, Difficulty("extreme").Valid())
}

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFoundError("Recipe", "abc1234"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.True(t, errors.Is(NewTokenExpiredError(), ErrTokenExpired))
	assert.False(t, errors.Is(errors.New("plain"), ErrNotFound))
}

func TestUser_ToResponse(t *testing.T) {
	u := &User{ID: "u1", Username: "alice", Email: "alice@example.com"}
	resp := u.ToResponse()
	assert.Nil(t, resp.AvatarURL)
	assert.Nil(t, resp.Bio)

	u.AvatarURL = DefaultAvatarURL(u.Email)
	resp = u.ToResponse()
	require.NotNil(t, resp.AvatarURL)
	assert.Equal(t, "https://i.pravatar.cc/150?u=alice%40example.com", *resp.AvatarURL)
}
