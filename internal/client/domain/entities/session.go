// Package entities содержит доменные сущности клиентской сессии.
package entities

import (
	"errors"
	"time"
)

// Ошибки домена сессии.
var (
	ErrNotAuthenticated = errors.New("no active session")
	ErrSessionExpired   = errors.New("session has expired")
	ErrNoRefreshToken   = errors.New("no refresh token available")
)

// User представляет аутентифицированного пользователя.
type User struct {
	ID        string    `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair содержит пару токенов, выданную сервером.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session хранит текущее состояние аутентификации клиента.
// Создается пустой при старте, заполняется после входа или обновления
// токенов, очищается при выходе или невосстановимом 401.
type Session struct {
	User           *User
	AccessToken    string
	RefreshToken   string
	LastActivityAt time.Time
}

// Active сообщает, есть ли в сессии действующий токен доступа.
func (s *Session) Active() bool {
	return s.AccessToken != ""
}

// ExpiredAfter сообщает, истекла ли сессия при заданном таймауте
// неактивности на момент now.
func (s *Session) ExpiredAfter(idleTimeout time.Duration, now time.Time) bool {
	if !s.Active() || s.LastActivityAt.IsZero() {
		return false
	}
	return now.Sub(s.LastActivityAt) > idleTimeout
}
