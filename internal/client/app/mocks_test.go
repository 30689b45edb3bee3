package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"apikit/internal/client/domain/entities"
)

// testJWT выпускает подписанный HS256 токен с заданным сроком действия.
func testJWT(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Register(ctx context.Context, email, username, password string) (*entities.TokenPair, *entities.User, error) {
	args := m.Called(ctx, email, username, password)
	pair, _ := args.Get(0).(*entities.TokenPair)
	user, _ := args.Get(1).(*entities.User)
	return pair, user, args.Error(2)
}

func (m *mockAuthAPI) Login(ctx context.Context, email, password string) (*entities.TokenPair, *entities.User, error) {
	args := m.Called(ctx, email, password)
	pair, _ := args.Get(0).(*entities.TokenPair)
	user, _ := args.Get(1).(*entities.User)
	return pair, user, args.Error(2)
}

func (m *mockAuthAPI) Refresh(ctx context.Context, refreshToken string) (*entities.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*entities.TokenPair)
	return pair, args.Error(1)
}

func (m *mockAuthAPI) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}
