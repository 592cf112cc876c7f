package service

import (
	"context"
	"strings"
	"testing"

	"recipeexchange/internal/models"
	"recipeexchange/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetProfile(t *testing.T) {
	s := newContentStack(t)
	ctx := context.Background()
	alice := createUser(t, s.db, "alice")
	bob := createUser(t, s.db, "bob")
	users := NewUserService(repository.NewUserRepository(s.db), repository.NewRecipeRepository(s.db))

	first, err := s.recipes.Create(ctx, sampleRecipeInput("One"), alice.ID)
	require.NoError(t, err)
	_, err = s.recipes.Create(ctx, sampleRecipeInput("Two"), alice.ID)
	require.NoError(t, err)
	_, err = s.votes.Vote(ctx, first.ID, bob.ID, voteOf(models.Upvote))
	require.NoError(t, err)

	profile, err := users.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, profile.ID)
	assert.Equal(t, int64(2), profile.RecipeCount)
	assert.Equal(t, int64(3), profile.TotalVoteScore)

	empty, err := users.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, empty.RecipeCount)
	assert.Zero(t, empty.TotalVoteScore)

	_, err = users.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	users := NewUserService(repository.NewUserRepository(db), repository.NewRecipeRepository(db))
	ctx := context.Background()

	_, err := users.UpdateProfile(ctx, alice.ID, strings.Repeat("x", 501))
	assertValidationError(t, err)

	updated, err := users.UpdateProfile(ctx, alice.ID, "Home cook.")
	require.NoError(t, err)
	assert.Equal(t, "Home cook.", updated.Bio)

	_, err = users.UpdateProfile(ctx, "missing", "bio")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserService_UpdateAvatar(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	users := NewUserService(repository.NewUserRepository(db), repository.NewRecipeRepository(db))
	ctx := context.Background()

	custom := "/uploads/alice.png"
	empty := ""
	bad := "ftp://example.com/a.png"

	tests := []struct {
		name     string
		avatar   *string
		expected string
		invalid  bool
	}{
		{"custom upload", &custom, custom, false},
		{"nil restores default", nil, models.DefaultAvatarURL(alice.Email), false},
		{"empty restores default", &empty, models.DefaultAvatarURL(alice.Email), false},
		{"unsupported scheme", &bad, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := users.UpdateAvatar(ctx, alice.ID, tt.avatar)
			if tt.invalid {
				assertValidationError(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, user.AvatarURL)
		})
	}
}
