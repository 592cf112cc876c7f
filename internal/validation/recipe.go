package validation

import (
	"fmt"
	"net/url"
	"strings"

	"recipeexchange/internal/models"
)

const (
	maxTitleLen        = 200
	maxDescriptionLen  = 5000
	maxIngredients     = 100
	maxInstructions    = 100
	maxTags            = 20
	maxTagLen          = 40
	maxMinutes         = 7 * 24 * 60
	maxServings        = 1000
	maxImageURLLen     = 2048
	maxIngredientField = 200
	maxInstructionLen  = 2000
)

// ValidateTitle checks a recipe title.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title is required")
	}
	if len([]rune(trimmed)) > maxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", maxTitleLen)
	}
	return nil
}

// ValidateDescription checks a recipe description.
func ValidateDescription(description string) error {
	if len([]rune(description)) > maxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", maxDescriptionLen)
	}
	return nil
}

// ValidateIngredients checks the ingredient list. Every ingredient needs a name.
func ValidateIngredients(ingredients []models.Ingredient) error {
	if len(ingredients) > maxIngredients {
		return fmt.Errorf("a recipe can have at most %d ingredients", maxIngredients)
	}
	for i, ing := range ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("ingredient %d must have a name", i+1)
		}
		if len(ing.Name) > maxIngredientField || len(ing.Amount) > maxIngredientField || len(ing.Unit) > maxIngredientField {
			return fmt.Errorf("ingredient %d has a field longer than %d characters", i+1, maxIngredientField)
		}
	}
	return nil
}

// ValidateInstructions checks the ordered step list.
func ValidateInstructions(steps []string) error {
	if len(steps) > maxInstructions {
		return fmt.Errorf("a recipe can have at most %d instructions", maxInstructions)
	}
	for i, step := range steps {
		if strings.TrimSpace(step) == "" {
			return fmt.Errorf("instruction %d must not be empty", i+1)
		}
		if len([]rune(step)) > maxInstructionLen {
			return fmt.Errorf("instruction %d must not exceed %d characters", i+1, maxInstructionLen)
		}
	}
	return nil
}

// ValidateMinutes checks a prep or cook time.
func ValidateMinutes(field string, minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	if minutes > maxMinutes {
		return fmt.Errorf("%s must not exceed %d minutes", field, maxMinutes)
	}
	return nil
}

// ValidateServings checks the serving count.
func ValidateServings(servings int) error {
	if servings < 1 {
		return fmt.Errorf("servings must be at least 1")
	}
	if servings > maxServings {
		return fmt.Errorf("servings must not exceed %d", maxServings)
	}
	return nil
}

// ValidateDifficulty checks the difficulty enum.
func ValidateDifficulty(d models.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("difficulty must be one of easy, medium, hard")
	}
	return nil
}

// ValidateCategory checks the category enum.
func ValidateCategory(c models.Category) error {
	if !c.Valid() {
		return fmt.Errorf("category %q is not supported", c)
	}
	return nil
}

// ValidateTags checks the tag list.
func ValidateTags(tags []string) error {
	if len(tags) > maxTags {
		return fmt.Errorf("a recipe can have at most %d tags", maxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags must not be empty")
		}
		if len([]rune(tag)) > maxTagLen {
			return fmt.Errorf("tag %q must not exceed %d characters", tag, maxTagLen)
		}
	}
	return nil
}

// ValidateImageURL accepts uploaded paths ("/uploads/...") and absolute http(s) URLs.
func ValidateImageURL(raw string) error {
	if len(raw) > maxImageURLLen {
		return fmt.Errorf("image URL must not exceed %d characters", maxImageURLLen)
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL must be an uploaded path or an http(s) URL")
	}
	return nil
}
