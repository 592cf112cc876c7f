package service

import (
	"context"

	"recipeexchange/internal/cache"
	"recipeexchange/internal/models"
	"recipeexchange/internal/notifications"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// VoteService is the voting ledger. Each call applies exactly one transition
// of models.ApplyVote while holding the recipe row lock.
type VoteService struct {
	db     *gorm.DB
	events EventPublisher
}

func NewVoteService(db *gorm.DB, events EventPublisher) *VoteService {
	return &VoteService{db: db, events: events}
}

// Vote applies requested (nil removes) and returns the resulting vote and score.
func (s *VoteService) Vote(ctx context.Context, recipeID, userID string, requested *models.VoteType) (*models.VoteResult, error) {
	span, ctx := observability.StartServiceSpan(ctx, "VoteService", "Vote",
		attribute.String("recipe.id", recipeID),
		attribute.String("vote.requested", voteLabel(requested)),
	)
	defer span.End()

	if requested != nil && !requested.Valid() {
		return nil, models.NewValidationError("Vote type must be upvote, downvote or null.")
	}

	result := &models.VoteResult{}
	var authorID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipeRepo := repository.NewRecipeRepository(tx)
		voteRepo := repository.NewVoteRepository(tx)

		recipe, err := recipeRepo.GetForUpdate(ctx, recipeID)
		if err != nil {
			return err
		}
		authorID = recipe.AuthorID
		existing, err := voteRepo.Get(ctx, userID, recipeID)
		if err != nil {
			return err
		}

		var current *models.VoteType
		if existing != nil {
			current = &existing.VoteType
		}
		next, delta := models.ApplyVote(current, requested)

		switch {
		case existing == nil && next != nil:
			err = voteRepo.Create(ctx, &models.Vote{UserID: userID, RecipeID: recipeID, VoteType: *next})
		case existing != nil && next == nil:
			err = voteRepo.Delete(ctx, existing.ID)
		case existing != nil && *next != existing.VoteType:
			err = voteRepo.UpdateType(ctx, existing.ID, *next)
		}
		if err != nil {
			return err
		}

		score, err := recipeRepo.AdjustScore(ctx, recipeID, delta)
		if err != nil {
			return err
		}
		result.VoteType = next
		result.VoteScore = score
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	cache.InvalidateRecipe(ctx, recipeID)
	invalidateAuthorProfile(ctx, s.db, authorID)
	observability.VotesTotal.WithLabelValues(voteLabel(requested), voteLabel(result.VoteType)).Inc()
	score := result.VoteScore
	publishEvent(ctx, s.events, notifications.RecipeEvent{Type: notifications.EventVote, RecipeID: recipeID, VoteScore: &score})

	return result, nil
}

func voteLabel(v *models.VoteType) string {
	if v == nil {
		return "none"
	}
	return string(*v)
}
