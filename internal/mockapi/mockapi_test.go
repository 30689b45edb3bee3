package mockapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikit/internal/client/config"
	"apikit/internal/mockapi"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()

	return mockapi.NewApp(&config.MockConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var payload map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func login(t *testing.T, app *fiber.App, email, password string) map[string]any {
	t.Helper()

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return payload
}

func TestLoginWithSeededUser(t *testing.T) {
	app := testApp(t)

	payload := login(t, app, mockapi.DemoEmail, mockapi.DemoPassword)

	assert.NotEmpty(t, payload["user_id"])
	assert.Equal(t, mockapi.DemoEmail, payload["email"])
	assert.NotEmpty(t, payload["access_token"])
	assert.NotEmpty(t, payload["refresh_token"])
}

func TestLoginWithWrongPassword(t *testing.T) {
	app := testApp(t)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    mockapi.DemoEmail,
		"password": "wrong",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, payload["error"])
}

func TestRegisterThenLogin(t *testing.T) {
	app := testApp(t)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "new@b.com",
		"username": "newbie",
		"password": "secret",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, payload["access_token"])

	login(t, app, "new@b.com", "secret")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := testApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    mockapi.DemoEmail,
		"username": "other",
		"password": "secret",
	}, nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app := testApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "only@b.com",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfileRequiresBearer(t *testing.T) {
	app := testApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/user/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/user/profile", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileWithValidToken(t *testing.T) {
	app := testApp(t)

	tokens := login(t, app, mockapi.DemoEmail, mockapi.DemoPassword)
	accessToken, _ := tokens["access_token"].(string)
	require.NotEmpty(t, accessToken)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/user/profile", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, tokens["user_id"], payload["user_id"])
	assert.Equal(t, mockapi.DemoEmail, payload["email"])
	assert.NotEmpty(t, payload["created_at"])
}

func TestRefreshRotatesAndRevokesOldToken(t *testing.T) {
	app := testApp(t)

	tokens := login(t, app, mockapi.DemoEmail, mockapi.DemoPassword)
	refreshToken, _ := tokens["refresh_token"].(string)
	require.NotEmpty(t, refreshToken)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, payload["access_token"])
	assert.NotEqual(t, refreshToken, payload["refresh_token"])

	// Старый refresh токен отозван после ротации.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	app := testApp(t)

	tokens := login(t, app, mockapi.DemoEmail, mockapi.DemoPassword)
	refreshToken, _ := tokens["refresh_token"].(string)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/logout", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	app := testApp(t)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/nothing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, payload["error"])
}
