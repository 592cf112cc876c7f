package service

import (
	"context"

	"recipeexchange/internal/notifications"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/repository"

	"gorm.io/gorm"
)

// SavedRecipeService is the save registry.
type SavedRecipeService struct {
	db     *gorm.DB
	events EventPublisher
}

func NewSavedRecipeService(db *gorm.DB, events EventPublisher) *SavedRecipeService {
	return &SavedRecipeService{db: db, events: events}
}

// ToggleSave removes the user's bookmark if present and adds it otherwise,
// returning the resulting state.
func (s *SavedRecipeService) ToggleSave(ctx context.Context, recipeID, userID string) (bool, error) {
	var isSaved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repository.NewRecipeRepository(tx).GetForUpdate(ctx, recipeID); err != nil {
			return err
		}
		savedRepo := repository.NewSavedRecipeRepository(tx)
		removed, err := savedRepo.Delete(ctx, userID, recipeID)
		if err != nil {
			return err
		}
		if removed {
			isSaved = false
			return nil
		}
		if err := savedRepo.Create(ctx, userID, recipeID); err != nil {
			return err
		}
		isSaved = true
		return nil
	})
	if err != nil {
		return false, err
	}

	result := "unsaved"
	if isSaved {
		result = "saved"
	}
	observability.SavesTotal.WithLabelValues(result).Inc()
	publishEvent(ctx, s.events, notifications.RecipeEvent{Type: notifications.EventSave, RecipeID: recipeID})

	return isSaved, nil
}

// SavedIDs reports which of recipeIDs userID has saved.
func (s *SavedRecipeService) SavedIDs(ctx context.Context, userID string, recipeIDs []string) (map[string]bool, error) {
	return repository.NewSavedRecipeRepository(s.db).SavedIDs(ctx, userID, recipeIDs)
}
