package service

import (
	"context"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/notifications"
)

// EventPublisher delivers recipe change events to live subscribers.
type EventPublisher interface {
	PublishRecipeEvent(ctx context.Context, event notifications.RecipeEvent) error
}

// publishEvent is best effort: the write has already committed.
func publishEvent(ctx context.Context, events EventPublisher, event notifications.RecipeEvent) {
	if events == nil {
		return
	}
	if err := events.PublishRecipeEvent(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish recipe event",
			"type", event.Type,
			"recipe_id", event.RecipeID,
			"error", err,
		)
	}
}
