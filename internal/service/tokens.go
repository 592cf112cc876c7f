package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"recipeexchange/internal/models"
)

const (
	tokenBytes = 64

	ConfirmationTokenTTL  = 24 * time.Hour
	PasswordResetTokenTTL = time.Hour
	EmailChangeTokenTTL   = 24 * time.Hour
)

// GenerateToken returns 64 random bytes encoded as unpadded base64url.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// checkToken verifies supplied against the stored token and its expiry.
// A missing stored token is indistinguishable from a mismatch.
func checkToken(stored *string, expiry *time.Time, supplied string, now time.Time) error {
	if stored == nil || supplied == "" ||
		subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) != 1 {
		return models.NewInvalidTokenError()
	}
	if expiry == nil || !now.Before(*expiry) {
		return models.NewTokenExpiredError()
	}
	return nil
}

func issueToken(now time.Time, ttl time.Duration) (*string, *time.Time, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	expiry := now.Add(ttl)
	return &token, &expiry, nil
}
