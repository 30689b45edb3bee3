package mockapi

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Ошибки хранилища пользователей.
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Учетные данные демонстрационного пользователя.
const (
	DemoEmail    = "a@b.com"
	DemoUsername = "demo"
	DemoPassword = "x"
)

// User представляет пользователя mock-сервера.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// UserStore хранит пользователей и выданные refresh токены в памяти.
type UserStore struct {
	mu            sync.RWMutex
	usersByEmail  map[string]*User
	usersByID     map[string]*User
	refreshTokens map[string]string // refresh token -> user ID
}

// NewUserStore создает хранилище с предустановленным демонстрационным
// пользователем.
func NewUserStore() *UserStore {
	store := &UserStore{
		usersByEmail:  make(map[string]*User),
		usersByID:     make(map[string]*User),
		refreshTokens: make(map[string]string),
	}
	// Ошибка невозможна: пароль короче 72 байт.
	_, _ = store.CreateUser(DemoEmail, DemoUsername, DemoPassword)
	return store
}

// CreateUser регистрирует нового пользователя.
func (s *UserStore) CreateUser(email, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredentials, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return nil, ErrUserAlreadyExists
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.usersByEmail[email] = user
	s.usersByID[user.ID] = user
	return user, nil
}

// Authenticate проверяет пару email и пароль.
func (s *UserStore) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	user, exists := s.usersByEmail[email]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser возвращает пользователя по ID.
func (s *UserStore) GetUser(userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[userID]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RegisterRefreshToken запоминает выданный refresh токен.
func (s *UserStore) RegisterRefreshToken(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[token] = userID
}

// RotateRefreshToken отзывает старый refresh токен и возвращает
// владельца. Повторное использование отозванного токена запрещено.
func (s *UserStore) RotateRefreshToken(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, exists := s.refreshTokens[token]
	if !exists {
		return "", ErrTokenRevoked
	}
	delete(s.refreshTokens, token)
	return userID, nil
}

// RevokeRefreshToken отзывает refresh токен при выходе.
func (s *UserStore) RevokeRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, token)
}
