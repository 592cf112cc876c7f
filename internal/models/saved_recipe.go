package models

import "time"

// SavedRecipe is a user's bookmark of a recipe.
type SavedRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_saved_user_recipe" json:"userId"`
	RecipeID  string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_saved_user_recipe;index" json:"recipeId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the database table name for SavedRecipe.
func (SavedRecipe) TableName() string {
	return "saved_recipes"
}
