package cache

import (
	"context"
	"log/slog"
	"time"

	"recipeexchange/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Cached entries and how long they live. Writers invalidate explicitly, so the
// TTLs only bound staleness after a missed invalidation.
const (
	RecipeTTL  = 10 * time.Minute
	ProfileTTL = time.Minute

	// generationTTL outlives any in-flight fill.
	generationTTL = time.Hour
)

// RecipeKey holds a recipe's read projection.
func RecipeKey(recipeID string) string { return "recipe:" + recipeID }

// ProfileKey holds a public profile, looked up by username.
func ProfileKey(username string) string { return "profile:" + username }

func generationKey(key string) string { return "gen:" + key }

// Invalidate deletes keys and bumps their generations so fills that read the
// old state are discarded. Failures are logged; the TTL cleans up eventually.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		return nil
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

func InvalidateRecipe(ctx context.Context, recipeID string) {
	Invalidate(ctx, RecipeKey(recipeID))
}

func InvalidateProfile(ctx context.Context, username string) {
	Invalidate(ctx, ProfileKey(username))
}
