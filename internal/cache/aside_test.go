package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRecipe struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	return mr
}

func TestAside_FillsAndServesFromCache(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedRecipe) func() error {
		return func() error {
			calls++
			*dest = cachedRecipe{ID: "abc1234", Score: 3}
			return nil
		}
	}

	var first cachedRecipe
	require.NoError(t, Aside(ctx, RecipeKey("abc1234"), &first, RecipeTTL, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("recipe:abc1234"))
	assert.Equal(t, RecipeTTL, mr.TTL("recipe:abc1234"))

	var second cachedRecipe
	require.NoError(t, Aside(ctx, RecipeKey("abc1234"), &second, RecipeTTL, fetch(&second)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	InvalidateRecipe(ctx, "abc1234")
	assert.False(t, mr.Exists("recipe:abc1234"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var dest cachedRecipe
	err := Aside(ctx, RecipeKey("missing"), &dest, RecipeTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("recipe:missing"))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	calls := 0
	var dest cachedRecipe
	for i := 0; i < 2; i++ {
		err := Aside(ctx, RecipeKey("x"), &dest, time.Minute, func() error {
			calls++
			dest.ID = "x"
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, "x", dest.ID)
}

func TestGetJSON_CorruptEntryIsEvicted(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set("recipe:bad", "{not json"))

	var dest cachedRecipe
	assert.False(t, GetJSON(context.Background(), "recipe:bad", &dest))
	assert.False(t, mr.Exists("recipe:bad"))
}

func TestAside_InvalidationDuringFetchSkipsFill(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var stale cachedRecipe
	err := Aside(ctx, RecipeKey("abc1234"), &stale, RecipeTTL, func() error {
		stale = cachedRecipe{ID: "abc1234", Score: 3}
		InvalidateRecipe(ctx, "abc1234")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stale.Score)
	assert.False(t, mr.Exists("recipe:abc1234"))

	var fresh cachedRecipe
	err = Aside(ctx, RecipeKey("abc1234"), &fresh, RecipeTTL, func() error {
		fresh = cachedRecipe{ID: "abc1234", Score: 2}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("recipe:abc1234"))

	var cached cachedRecipe
	require.True(t, GetJSON(ctx, RecipeKey("abc1234"), &cached))
	assert.Equal(t, 2, cached.Score)
}

func TestInvalidate_BumpsGeneration(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	InvalidateProfile(ctx, "alice")
	InvalidateProfile(ctx, "alice")

	got, err := mr.Get("gen:profile:alice")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, generationTTL, mr.TTL("gen:profile:alice"))
}
