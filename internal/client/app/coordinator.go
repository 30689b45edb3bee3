// Package app содержит прикладной слой клиента: хранилище сессии
// и координатор обновления токенов.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"apikit/internal/client/domain/entities"
	"apikit/pkg/apierrors"
	"apikit/pkg/logger"
)

// Константы для логирования координатора.
const (
	LogRefreshStarted  = "refresh coordinator: network refresh started"
	LogRefreshJoined   = "refresh coordinator: joined in-flight refresh"
	LogRefreshResolved = "refresh coordinator: refresh resolved"
)

// refreshOutcome - общий исход одной попытки обновления.
type refreshOutcome struct {
	pair *entities.TokenPair
	err  error
}

// RefreshCoordinator сериализует конкурентные обновления токенов:
// состояния Idle и Refreshing. Первый вызов в Idle запускает единственный
// сетевой запрос; вызовы во время Refreshing встают в очередь и получают
// тот же исход в порядке постановки. Ни один ожидающий не остается
// неразрешенным: буферизованные каналы доставляют исход даже тем, кто
// уже отменил свой контекст.
type RefreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome

	doRefresh func(ctx context.Context) (*entities.TokenPair, error)
}

// NewRefreshCoordinator создает координатор вокруг функции сетевого
// обновления.
func NewRefreshCoordinator(doRefresh func(ctx context.Context) (*entities.TokenPair, error)) *RefreshCoordinator {
	return &RefreshCoordinator{doRefresh: doRefresh}
}

// Refresh возвращает результат текущего обновления либо запускает новое.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (*entities.TokenPair, error) {
	log := logger.Log(ctx)

	c.mu.Lock()
	if c.refreshing {
		waiter := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()

		log.Debug(ctx, LogRefreshJoined)

		select {
		case outcome := <-waiter:
			return outcome.pair, outcome.err
		case <-ctx.Done():
			// Ожидающий освобождается; общий запрос продолжается для остальных.
			return nil, apierrors.FromTransport(ctx.Err())
		}
	}

	c.refreshing = true
	c.mu.Unlock()

	log.Debug(ctx, LogRefreshStarted)
	pair, err := c.doRefresh(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	outcome := refreshOutcome{pair: pair, err: err}
	for _, waiter := range waiters {
		waiter <- outcome
	}

	log.Debug(ctx, LogRefreshResolved,
		zap.Int("waiters", len(waiters)),
		zap.Bool("success", err == nil))

	return pair, err
}
