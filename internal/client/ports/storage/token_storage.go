// Package storage определяет интерфейс хранилища токенов сессии.
package storage

import (
	"context"
	"time"
)

// Фиксированные ключи персистентного состояния сессии.
const (
	KeyAccessToken  = "auth:access_token"
	KeyRefreshToken = "auth:refresh_token" // #nosec G101 - ключ хранилища, не секрет
	KeyLastActivity = "auth:last_activity"
)

// TokenStorage определяет интерфейс для персистентного состояния сессии:
// пары токенов и отметки последней активности.
type TokenStorage interface {
	SaveTokens(ctx context.Context, accessToken, refreshToken string) error

	LoadTokens(ctx context.Context) (accessToken, refreshToken string, err error)

	SaveLastActivity(ctx context.Context, at time.Time) error

	LoadLastActivity(ctx context.Context) (time.Time, error)

	// Clear удаляет оба токена и отметку активности.
	Clear(ctx context.Context) error

	Close() error
}
