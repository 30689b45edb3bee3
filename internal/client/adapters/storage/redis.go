// Package storage содержит реализации хранилища токенов: Redis и память.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"apikit/internal/client/config"
	portstorage "apikit/internal/client/ports/storage"
	"apikit/pkg/logger"
)

// Константы для логирования.
const (
	LogMethodSaveTokens   = "save tokens"
	LogMethodLoadTokens   = "load tokens"
	LogMethodSaveActivity = "save last activity"
	LogMethodClear        = "clear"

	ErrorFailedToSave  = "failed to save value in redis"
	ErrorFailedToLoad  = "failed to load value from redis"
	ErrorFailedToClear = "failed to clear session keys in redis"
	ErrorFailedToClose = "failed to close redis connection"
)

// RedisStorage реализует TokenStorage поверх Redis.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage создает новое Redis-хранилище токенов.
func NewRedisStorage(ctx context.Context, cfg *config.RedisConfig) (portstorage.TokenStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.GetAddressString(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     cfg.ConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdle,
		ConnMaxIdleTime: cfg.IdleTimeout,
		ConnMaxLifetime: cfg.MaxConnLifetime,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// SaveTokens сохраняет пару токенов под фиксированными ключами.
func (s *RedisStorage) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSaveTokens))

	if err := s.client.Set(ctx, portstorage.KeyAccessToken, accessToken, 0).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSave, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSave, err)
	}
	if err := s.client.Set(ctx, portstorage.KeyRefreshToken, refreshToken, 0).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSave, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSave, err)
	}
	return nil
}

// LoadTokens загружает пару токенов. Отсутствующие ключи дают пустые строки.
func (s *RedisStorage) LoadTokens(ctx context.Context) (string, string, error) {
	log := logger.Log(ctx).With(zap.String("method", LogMethodLoadTokens))

	access, err := s.client.Get(ctx, portstorage.KeyAccessToken).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error(ctx, ErrorFailedToLoad, zap.Error(err))
		return "", "", fmt.Errorf("%s: %w", ErrorFailedToLoad, err)
	}

	refresh, err := s.client.Get(ctx, portstorage.KeyRefreshToken).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error(ctx, ErrorFailedToLoad, zap.Error(err))
		return "", "", fmt.Errorf("%s: %w", ErrorFailedToLoad, err)
	}

	return access, refresh, nil
}

// SaveLastActivity сохраняет отметку последней активности.
func (s *RedisStorage) SaveLastActivity(ctx context.Context, at time.Time) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodSaveActivity))

	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.client.Set(ctx, portstorage.KeyLastActivity, value, 0).Err(); err != nil {
		log.Error(ctx, ErrorFailedToSave, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSave, err)
	}
	return nil
}

// LoadLastActivity загружает отметку последней активности.
// Отсутствие отметки дает нулевое время без ошибки.
func (s *RedisStorage) LoadLastActivity(ctx context.Context) (time.Time, error) {
	value, err := s.client.Get(ctx, portstorage.KeyLastActivity).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("%s: %w", ErrorFailedToLoad, err)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", ErrorFailedToLoad, err)
	}
	return time.UnixMilli(millis), nil
}

// Clear удаляет все ключи сессии.
func (s *RedisStorage) Clear(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", LogMethodClear))

	err := s.client.Del(ctx,
		portstorage.KeyAccessToken,
		portstorage.KeyRefreshToken,
		portstorage.KeyLastActivity,
	).Err()
	if err != nil {
		log.Error(ctx, ErrorFailedToClear, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisStorage) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToClose, err)
	}
	return nil
}
