// Command main runs the database seeder for Recipe Exchange.
package main

import (
	"context"
	"flag"
	"log"

	"recipeexchange/internal/config"
	"recipeexchange/internal/database"
	"recipeexchange/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	// Parse command line flags
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	recipesPerUser := flag.Int("recipes", defaults.RecipesPerUser, "Recipes per user")
	votePercent := flag.Int("vote-percent", defaults.VotePercent, "Chance (0-100) that a user votes on another user's recipe")
	savePercent := flag.Int("save-percent", defaults.SavePercent, "Chance (0-100) that a user saves another user's recipe")
	randSeed := flag.Int64("rand-seed", 0, "Seed for generated data (0 picks one at random)")
	fixtures := flag.String("fixtures", "", "Apply a YAML fixtures file instead of generated data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	opts := defaults
	opts.Users = *numUsers
	opts.RecipesPerUser = *recipesPerUser
	opts.VotePercent = *votePercent
	opts.SavePercent = *savePercent
	opts.RandSeed = *randSeed
	s := seed.NewSeeder(db, opts)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *fixtures != "" {
		fx, err := seed.LoadFixturesFile(*fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
		if _, err := s.ApplyFixtures(ctx, fx); err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else if _, err := s.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All done. Generated users have the password: %s", seed.DemoPassword)
}
