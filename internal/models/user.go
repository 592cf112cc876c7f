// Package models contains data structures for the application's domain models.
package models

import (
	"net/url"
	"time"
)

// User represents an account in Recipe Exchange. Token state is never serialized.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	AvatarURL    string    `gorm:"size:2048" json:"avatarUrl,omitempty"`
	Bio          string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	EmailConfirmed               bool       `gorm:"not null;default:false" json:"-"`
	EmailConfirmationToken       *string    `gorm:"size:128" json:"-"`
	EmailConfirmationTokenExpiry *time.Time `json:"-"`
	PasswordResetToken           *string    `gorm:"size:128" json:"-"`
	PasswordResetTokenExpiry     *time.Time `json:"-"`
	PendingEmail                 *string    `gorm:"size:255" json:"-"`
	EmailChangeToken             *string    `gorm:"size:128" json:"-"`
	EmailChangeTokenExpiry       *time.Time `json:"-"`
}

// UserResponse is the public author/account shape.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatarUrl"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse converts a user to its public shape.
func (u *User) ToResponse() UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		resp.AvatarURL = &avatar
	}
	if u.Bio != "" {
		bio := u.Bio
		resp.Bio = &bio
	}
	return resp
}

// Profile is a user's public profile with aggregate recipe stats.
type Profile struct {
	UserResponse
	RecipeCount    int64 `json:"recipeCount"`
	TotalVoteScore int64 `json:"totalVoteScore"`
}

// DefaultAvatarURL returns the generated avatar for an email address.
func DefaultAvatarURL(email string) string {
	return "https://i.pravatar.cc/150?u=" + url.QueryEscape(email)
}
