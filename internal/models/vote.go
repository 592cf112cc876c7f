package models

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Vote is a user's single vote on a recipe.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_votes_user_recipe" json:"userId"`
	RecipeID  string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_votes_user_recipe;index" json:"recipeId"`
	VoteType  VoteType  `gorm:"size:16;not null" json:"voteType"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    *Recipe   `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

// VoteResult is the outcome of a vote operation.
type VoteResult struct {
	VoteType  *VoteType `json:"voteType"`
	VoteScore int       `json:"voteScore"`
}

// ApplyVote computes the next vote state and the score delta for a request.
// A nil current means no vote; a nil requested removes any vote. Requesting
// the current vote again toggles it off.
func ApplyVote(current, requested *VoteType) (next *VoteType, delta int) {
	switch {
	case requested == nil:
		return nil, -weight(current)
	case current != nil && *current == *requested:
		return nil, -weight(current)
	default:
		v := *requested
		return &v, weight(requested) - weight(current)
	}
}

func weight(v *VoteType) int {
	if v == nil {
		return 0
	}
	switch *v {
	case Upvote:
		return 1
	case Downvote:
		return -1
	}
	return 0
}
