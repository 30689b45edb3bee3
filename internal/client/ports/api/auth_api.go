// Package api определяет интерфейсы удаленного API аутентификации.
package api

import (
	"context"

	"apikit/internal/client/domain/entities"
)

// AuthAPI определяет операции аутентификации на удаленном сервере.
// Реализация строится поверх HTTP клиента; хранилище сессии получает
// ее через конструктор, а не импортом, чтобы разорвать цикл зависимостей.
type AuthAPI interface {
	Register(ctx context.Context, email, username, password string) (*entities.TokenPair, *entities.User, error)

	Login(ctx context.Context, email, password string) (*entities.TokenPair, *entities.User, error)

	Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error)

	Logout(ctx context.Context, refreshToken string) error
}

// UserAPI определяет операции над профилем текущего пользователя.
type UserAPI interface {
	Profile(ctx context.Context) (*entities.User, error)
}
