// Package api содержит реализацию удаленного API аутентификации
// поверх HTTP клиента.
package api

import (
	"context"
	"fmt"
	"time"

	"apikit/internal/client/adapters/httpclient"
	"apikit/internal/client/domain/entities"
	portsapi "apikit/internal/client/ports/api"
)

// Маршруты API аутентификации.
const (
	pathRegister = "/api/v1/auth/register"
	pathLogin    = "/api/v1/auth/login"
	pathRefresh  = "/api/v1/auth/refresh"
	pathLogout   = "/api/v1/auth/logout"
	pathProfile  = "/api/v1/user/profile"
)

// Контексты ошибок.
const (
	errCtxRegister = "registering user"
	errCtxLogin    = "logging in"
	errCtxRefresh  = "refreshing tokens"
	errCtxLogout   = "logging out"
	errCtxProfile  = "fetching profile"
)

// registerRequest содержит данные для регистрации пользователя.
type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginRequest содержит данные для входа пользователя.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest содержит данные для обновления токенов.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// logoutRequest содержит данные для выхода пользователя.
type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse содержит данные о токенах и пользователе.
type tokenResponse struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// profileResponse содержит данные профиля пользователя.
type profileResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthClient реализует AuthAPI поверх HTTP клиента без аутентификации.
type AuthClient struct {
	client *httpclient.Client
}

// NewAuthClient создает клиент API аутентификации.
func NewAuthClient(client *httpclient.Client) portsapi.AuthAPI {
	return &AuthClient{client: client}
}

func (a *AuthClient) Register(ctx context.Context, email, username, password string) (*entities.TokenPair, *entities.User, error) {
	var resp tokenResponse
	req := registerRequest{Email: email, Username: username, Password: password}
	if err := a.client.Post(ctx, pathRegister, req, &resp); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtxRegister, err)
	}
	pair, user := resp.toDomain()
	return pair, user, nil
}

func (a *AuthClient) Login(ctx context.Context, email, password string) (*entities.TokenPair, *entities.User, error) {
	var resp tokenResponse
	req := loginRequest{Email: email, Password: password}
	if err := a.client.Post(ctx, pathLogin, req, &resp); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtxLogin, err)
	}
	pair, user := resp.toDomain()
	return pair, user, nil
}

func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error) {
	var resp tokenResponse
	req := refreshRequest{RefreshToken: refreshToken}
	if err := a.client.Post(ctx, pathRefresh, req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtxRefresh, err)
	}
	pair, _ := resp.toDomain()
	return pair, nil
}

func (a *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	req := logoutRequest{RefreshToken: refreshToken}
	if err := a.client.Post(ctx, pathLogout, req, nil); err != nil {
		return fmt.Errorf("%s: %w", errCtxLogout, err)
	}
	return nil
}

// toDomain преобразует ответ сервера в доменные сущности.
func (r *tokenResponse) toDomain() (*entities.TokenPair, *entities.User) {
	pair := &entities.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
	}
	user := &entities.User{
		ID:       r.UserID,
		Email:    r.Email,
		Username: r.Username,
	}
	return pair, user
}

// UserClient реализует UserAPI поверх аутентифицированного HTTP клиента.
type UserClient struct {
	client *httpclient.Client
}

// NewUserClient создает клиент API пользователя.
func NewUserClient(client *httpclient.Client) portsapi.UserAPI {
	return &UserClient{client: client}
}

func (u *UserClient) Profile(ctx context.Context) (*entities.User, error) {
	var resp profileResponse
	if err := u.client.Get(ctx, pathProfile, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtxProfile, err)
	}
	return &entities.User{
		ID:        resp.UserID,
		Email:     resp.Email,
		Username:  resp.Username,
		CreatedAt: resp.CreatedAt,
	}, nil
}
