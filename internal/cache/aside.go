package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"recipeexchange/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// GetJSON loads key into dest. It reports false on a miss, a decode
// failure, or when Redis is not configured.
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.DebugContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		Invalidate(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key with ttl. Errors are logged and dropped.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.DebugContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// fillIfCurrent stores ARGV[2] under KEYS[1] only while the generation in
// KEYS[2] still equals ARGV[1].
var fillIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// generation returns the invalidation counter of key, "0" when it was never
// invalidated. ok is false when Redis is unusable.
func generation(ctx context.Context, key string) (gen string, ok bool) {
	gen, err := client.Get(ctx, generationKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		return "", false
	}
	return gen, true
}

// Aside serves dest from cache, or calls fetch to fill it and stores the result.
// Errors from fetch are returned unchanged and nothing is cached. A fill is
// dropped when the key was invalidated while fetch ran, so a write that
// commits mid-read never leaves its stale predecessor cached.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() error) error {
	if GetJSON(ctx, key, dest) {
		return nil
	}
	if client == nil {
		return fetch()
	}

	gen, ok := generation(ctx, key)
	if err := fetch(); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	raw, err := json.Marshal(dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil
	}
	err = fillIfCurrent.Run(ctx, client, []string{key, generationKey(key)}, gen, raw, ttl.Milliseconds()).Err()
	if err != nil {
		middleware.Logger.DebugContext(ctx, "cache fill failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
