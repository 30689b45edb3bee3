package storage

import (
	"context"
	"sync"
	"time"

	portstorage "apikit/internal/client/ports/storage"
)

// MemoryStorage реализует TokenStorage в памяти процесса.
// Используется по умолчанию, когда Redis не сконфигурирован.
type MemoryStorage struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	lastActivity time.Time
}

// NewMemoryStorage создает пустое хранилище в памяти.
func NewMemoryStorage() portstorage.TokenStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) SaveTokens(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	return nil
}

func (s *MemoryStorage) LoadTokens(_ context.Context) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken, nil
}

func (s *MemoryStorage) SaveLastActivity(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = at
	return nil
}

func (s *MemoryStorage) LoadLastActivity(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity, nil
}

func (s *MemoryStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.lastActivity = time.Time{}
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
