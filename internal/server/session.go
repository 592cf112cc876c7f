package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recipeexchange/internal/middleware"
	"recipeexchange/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "recipe_session"
	tokenIssuer       = "recipe-exchange-api"
	tokenAudience     = "recipe-exchange-client"

	localsUserID  = "userID"
	localsSession = "session"
)

// session is the validated content of a session token.
type session struct {
	UserID     string
	JTI        string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	FromCookie bool
}

func (s *Server) sessionTTL() time.Duration {
	if s.config.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.config.SessionTTLHours) * time.Hour
}

// generateToken creates a signed session token for userID.
func (s *Server) generateToken(userID string) (string, time.Time, error) {
	if s.config.SessionSecret == "" {
		return "", time.Time{}, fmt.Errorf("session secret not configured")
	}

	now := s.now()
	expiresAt := now.Add(s.sessionTTL())
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// parseToken validates signature, issuer, audience and lifetime.
func (s *Server) parseToken(tokenString string) (*session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.SessionSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid subject claim")
	}
	jti, _ := claims["jti"].(string)

	sess := &session{UserID: sub, JTI: jti}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		sess.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	return sess, nil
}

// tokenFromRequest prefers the session cookie and falls back to a Bearer header.
func tokenFromRequest(c *fiber.Ctx) (string, bool) {
	if cookie := c.Cookies(sessionCookieName); cookie != "" {
		return cookie, true
	}
	parts := strings.Split(c.Get(fiber.HeaderAuthorization), " ")
	if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
		return parts[1], false
	}
	return "", false
}

// issueSession signs a new token for userID and sets it as the session cookie.
func (s *Server) issueSession(c *fiber.Ctx, userID string) (string, error) {
	token, expiresAt, err := s.generateToken(userID)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return token, nil
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if s.redis == nil || jti == "" {
		return false
	}
	n, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && n > 0
}

// revokeSession blacklists the token ID until the token would have expired anyway.
func (s *Server) revokeSession(ctx context.Context, sess *session) error {
	if s.redis == nil || sess == nil || sess.JTI == "" {
		return nil
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, "blacklist:"+sess.JTI, "1", ttl).Err()
}

// SessionMiddleware resolves the caller's identity without enforcing it.
// Invalid or revoked tokens leave the request anonymous. Cookie sessions past
// half their lifetime are re-issued.
func (s *Server) SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, fromCookie := tokenFromRequest(c)
		if tokenString == "" {
			return c.Next()
		}

		sess, err := s.parseToken(tokenString)
		if err != nil || s.isRevoked(c.UserContext(), sess.JTI) {
			if fromCookie {
				s.clearSessionCookie(c)
			}
			return c.Next()
		}
		sess.FromCookie = fromCookie

		if fromCookie && s.now().Sub(sess.IssuedAt) > s.sessionTTL()/2 {
			if _, err := s.issueSession(c, sess.UserID); err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "failed to refresh session",
					slog.String("error", err.Error()))
			}
		}

		c.Locals(localsUserID, sess.UserID)
		c.Locals(localsSession, sess)
		return c.Next()
	}
}

// AuthRequired rejects requests that SessionMiddleware left anonymous.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		return c.Next()
	}
}

// currentUserID returns the signed-in user's ID, or "" for anonymous requests.
func currentUserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(localsUserID).(string)
	return uid
}

func currentSession(c *fiber.Ctx) *session {
	sess, _ := c.Locals(localsSession).(*session)
	return sess
}
