// Package bootstrap brings up the database and Redis for the server and tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/config"
	"recipeexchange/internal/database"
	"recipeexchange/internal/middleware"
	"recipeexchange/internal/models"
	"recipeexchange/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo seeds an empty development database. Fixtures, when set, are
	// applied instead of generated data.
	SeedDemo bool
	Fixtures string
}

// OptionsFromConfig reads the seeding switches from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{SeedDemo: cfg.SeedDemoData, Fixtures: cfg.SeedFixturesPath}
}

// InitRuntime connects to the database, applies the schema, connects to Redis
// and optionally seeds demo data. The Redis client is nil when Redis is
// unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("schema setup failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if err := seedDevelopment(ctx, cfg, db, opts); err != nil {
		_ = database.Close(db)
		if r != nil {
			_ = r.Close()
		}
		return nil, nil, fmt.Errorf("demo seeding failed: %w", err)
	}

	return db, r, nil
}

func seedDevelopment(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if !opts.SeedDemo {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		middleware.Logger.Warn("demo seeding is only allowed in development", slog.String("env", cfg.Env))
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("database already has users, skipping demo seeding", slog.Int64("users", users))
		return nil
	}

	seeder := seed.NewSeeder(db, seed.DefaultOptions())
	if opts.Fixtures != "" {
		fx, err := seed.LoadFixturesFile(opts.Fixtures)
		if err != nil {
			return err
		}
		_, err = seeder.ApplyFixtures(ctx, fx)
		return err
	}
	_, err := seeder.Run(ctx)
	return err
}
