package server

import (
	"errors"
	"net/http"
	"testing"

	"recipeexchange/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow_RegisterConfirmLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, msgRegistered, decode[messageResponse](t, resp).Message)
	assert.Nil(t, sessionCookie(resp), "registration does not sign in")

	mail := env.mailer.last(t)
	assert.Equal(t, "confirm", mail.Kind)
	assert.Equal(t, "alice@example.com", mail.To)

	resp = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeEmailUnconfirmed, decode[models.ErrorResponse](t, resp).Code)

	resp = env.do(t, http.MethodPost, "/api/auth/confirm-email", map[string]string{
		"email": "alice@example.com", "token": mail.Token,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := env.login(t, "alice@example.com")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[models.UserResponse](t, resp)
	assert.Equal(t, "alice", me.Username)
	require.NotNil(t, me.AvatarURL)
	assert.Equal(t, models.DefaultAvatarURL("alice@example.com"), *me.AvatarURL)

	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked token must not authenticate")
}

func TestLogin_FailuresDoNotEnumerate(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "bob")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testPassword},
		{"wrong password", "bob@example.com", "WrongPassword1!"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
				"email": tt.email, "password": tt.password,
			}, nil)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body := decode[models.ErrorResponse](t, resp)
			assert.Equal(t, models.CodeInvalidCredentials, body.Code)
			messages = append(messages, body.Error)
		})
	}
	require.Len(t, messages, 2)
	assert.Equal(t, messages[0], messages[1])
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "carol")

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid email",
			body:           map[string]string{"username": "dave", "email": "not-an-email", "password": testPassword},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeValidation,
		},
		{
			name:           "weak password",
			body:           map[string]string{"username": "dave", "email": "dave@example.com", "password": "short"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.CodeValidation,
		},
		{
			name:           "email taken",
			body:           map[string]string{"username": "dave", "email": "carol@example.com", "password": testPassword},
			expectedStatus: http.StatusConflict,
			expectedCode:   models.CodeConflict,
		},
		{
			name:           "username taken",
			body:           map[string]string{"username": "carol", "email": "new@example.com", "password": testPassword},
			expectedStatus: http.StatusConflict,
			expectedCode:   models.CodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/register", tt.body, nil)
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.expectedCode, decode[models.ErrorResponse](t, resp).Code)
		})
	}
	assert.Zero(t, env.mailer.count())
}

func TestRegister_MailFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	resp := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "erin", "email": "erin@example.com", "password": testPassword,
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestForgotPassword_GenericAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "frank")

	known := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "frank@example.com"}, nil)
	unknown := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, nil)

	require.Equal(t, http.StatusOK, known.StatusCode)
	require.Equal(t, http.StatusOK, unknown.StatusCode)
	assert.Equal(t, decode[messageResponse](t, known), decode[messageResponse](t, unknown))
	assert.Equal(t, 1, env.mailer.count(), "only the real account receives mail")

	reset := env.mailer.last(t)
	assert.Equal(t, "reset", reset.Kind)

	resp := env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "frank@example.com", "token": reset.Token, "newPassword": "BrandNewPass2@",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email": "frank@example.com", "token": reset.Token, "newPassword": "BrandNewPass3@",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidToken, decode[models.ErrorResponse](t, resp).Code)

	resp = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "frank@example.com", "password": "BrandNewPass2@",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResendConfirmation_GenericAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "grace") // already confirmed

	resp := env.do(t, http.MethodPost, "/api/auth/resend-confirmation", map[string]string{"email": "grace@example.com"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, msgConfirmationSent, decode[messageResponse](t, resp).Message)
	assert.Zero(t, env.mailer.count())
}

func TestEmailChangeFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "heidi")
	cookie := env.login(t, "heidi@example.com")

	resp := env.do(t, http.MethodPost, "/api/auth/change-email", map[string]string{"newEmail": "heidi.new@example.com"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mail := env.mailer.last(t)
	assert.Equal(t, "email-change", mail.Kind)
	assert.Equal(t, "heidi.new@example.com", mail.To)

	resp = env.do(t, http.MethodPost, "/api/auth/confirm-email-change", map[string]string{"token": mail.Token}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Message string              `json:"message"`
		User    models.UserResponse `json:"user"`
	}](t, resp)
	assert.NotEmpty(t, body.Message)
	assert.Equal(t, "heidi.new@example.com", body.User.Email)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ivan")
	cookie := env.login(t, "ivan@example.com")

	resp := env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": "NotMyPassword1!", "newPassword": "AnotherPass9#x",
	}, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": testPassword, "newPassword": "AnotherPass9#x",
	}, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodGet, "/api/recipes/saved"},
		{http.MethodPost, "/api/recipes"},
		{http.MethodPost, "/api/recipes/abc1234/vote"},
		{http.MethodPost, "/api/recipes/abc1234/save"},
		{http.MethodPut, "/api/auth/profile"},
		{http.MethodPost, "/api/upload"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, map[string]string{}, nil)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, models.CodeUnauthorized, decode[models.ErrorResponse](t, resp).Code)
		})
	}
}
