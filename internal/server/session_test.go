package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware_TokenValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "judy")

	valid, _, err := env.server.generateToken(user.ID)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims, secret string) string {
		str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return str
	}
	base := func() jwt.MapClaims {
		now := time.Now()
		return jwt.MapClaims{
			"sub": user.ID,
			"iss": tokenIssuer,
			"aud": tokenAudience,
			"exp": now.Add(time.Hour).Unix(),
			"iat": now.Unix(),
			"jti": "jti-under-test",
		}
	}
	with := func(key string, value any) jwt.MapClaims {
		c := base()
		c[key] = value
		return c
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid bearer", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed bearer", "Token " + valid, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(base(), "some-other-secret"), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(with("exp", time.Now().Add(-time.Minute).Unix()), testSecret), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + sign(with("iss", "someone-else"), testSecret), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + sign(with("aud", "someone-else"), testSecret), http.StatusUnauthorized},
		{"missing subject", "Bearer " + sign(with("sub", ""), testSecret), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestSessionMiddleware_RevokedToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ken")

	token, _, err := env.server.generateToken(user.ID)
	require.NoError(t, err)
	sess, err := env.server.parseToken(token)
	require.NoError(t, err)

	require.NoError(t, env.server.revokeSession(t.Context(), sess))
	assert.True(t, env.mr.Exists("blacklist:"+sess.JTI))
	ttl := env.mr.TTL("blacklist:" + sess.JTI)
	assert.True(t, ttl > 0 && ttl <= env.server.sessionTTL())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionMiddleware_SlidingRenewal(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "lena")
	cookie := env.login(t, "lena@example.com")

	resp := env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp), "fresh sessions are not re-issued")

	issued := time.Now()
	env.server.now = func() time.Time { return issued.Add(4 * 24 * time.Hour) }

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renewed := sessionCookie(resp)
	require.NotNil(t, renewed, "sessions past half their lifetime are re-issued")
	assert.NotEqual(t, cookie.Value, renewed.Value)

	env.server.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "the original cookie still expires")
}

func TestSessionMiddleware_InvalidCookieIsCleared(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/recipes", nil, &http.Cookie{Name: sessionCookieName, Value: "garbage"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "public routes stay reachable")
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestAuthRequired_StandaloneHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "mallory")
	token, _, err := env.server.generateToken(user.ID)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(env.server.SessionMiddleware())
	app.Get("/whoami", env.server.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendString(currentUserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
