package models

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Difficulty of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Category of a recipe.
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategoryDessert   Category = "dessert"
	CategorySnack     Category = "snack"
	CategoryBeverage  Category = "beverage"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategoryDessert,
	CategorySnack,
	CategoryBeverage,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Ingredient is a single name/amount/unit line of a recipe.
type Ingredient struct {
	Name   string `json:"name" yaml:"name"`
	Amount string `json:"amount" yaml:"amount"`
	Unit   string `json:"unit" yaml:"unit"`
}

// Recipe represents a recipe in Recipe Exchange.
type Recipe struct {
	ID           string       `gorm:"primaryKey;type:varchar(7)" json:"id"`
	Title        string       `gorm:"size:200;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Ingredients  []Ingredient `gorm:"serializer:json;type:jsonb" json:"ingredients"`
	Instructions []string     `gorm:"serializer:json;type:jsonb" json:"instructions"`
	PrepTime     int          `gorm:"not null;default:0" json:"prepTime"`
	CookTime     int          `gorm:"not null;default:0" json:"cookTime"`
	Servings     int          `gorm:"not null;default:1" json:"servings"`
	Difficulty   Difficulty   `gorm:"size:16;not null" json:"difficulty"`
	Category     Category     `gorm:"size:16;not null;index" json:"category"`
	Tags         []string     `gorm:"serializer:json;type:jsonb" json:"tags"`
	ImageURL     *string      `gorm:"size:2048" json:"imageUrl"`
	AuthorID     string       `gorm:"type:varchar(36);not null;index" json:"authorId"`
	Author       *User        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	VoteScore    int          `gorm:"not null;default:0" json:"voteScore"`
	CreatedAt    time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// RecipePatch is a field mask for partial recipe updates. A nil field is left
// unchanged; ClearImage removes the image regardless of ImageURL.
type RecipePatch struct {
	Title        *string
	Description  *string
	Ingredients  *[]Ingredient
	Instructions *[]string
	PrepTime     *int
	CookTime     *int
	Servings     *int
	Difficulty   *Difficulty
	Category     *Category
	Tags         *[]string
	ImageURL     *string
	ClearImage   bool
}

// Empty reports whether the patch changes nothing.
func (p RecipePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Ingredients == nil &&
		p.Instructions == nil && p.PrepTime == nil && p.CookTime == nil &&
		p.Servings == nil && p.Difficulty == nil && p.Category == nil &&
		p.Tags == nil && p.ImageURL == nil && !p.ClearImage
}

// Apply writes every present field onto r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
	if p.PrepTime != nil {
		r.PrepTime = *p.PrepTime
	}
	if p.CookTime != nil {
		r.CookTime = *p.CookTime
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Difficulty != nil {
		r.Difficulty = *p.Difficulty
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	switch {
	case p.ClearImage:
		r.ImageURL = nil
	case p.ImageURL != nil:
		img := *p.ImageURL
		r.ImageURL = &img
	}
}

// RecipeView is a recipe rendered for a particular viewer.
type RecipeView struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     int          `json:"prepTime"`
	CookTime     int          `json:"cookTime"`
	Servings     int          `json:"servings"`
	Difficulty   Difficulty   `json:"difficulty"`
	Category     Category     `json:"category"`
	Tags         []string     `json:"tags"`
	ImageURL     *string      `json:"imageUrl"`
	AuthorID     string       `json:"authorId"`
	Author       UserResponse `json:"author"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	VoteScore    int          `json:"voteScore"`
	UserVote     *VoteType    `json:"userVote"`
	IsSaved      bool         `json:"isSaved"`
}

const (
	recipeIDLength   = 7
	recipeIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewRecipeID returns a random 7-character alphanumeric ID.
func NewRecipeID() (string, error) {
	max := big.NewInt(int64(len(recipeIDAlphabet)))
	buf := make([]byte, recipeIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = recipeIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
