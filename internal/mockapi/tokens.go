// Package mockapi реализует встроенный mock-сервер API аутентификации.
// Используется для локальной разработки и тестов клиента вместо
// настоящего бэкенда.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"apikit/pkg/logger"
)

// Ошибки работы с токенами.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
	ErrTokenRevoked     = errors.New("refresh token revoked")
)

// Константы для логирования.
const (
	msgGeneratingToken = "generating token"
	msgValidatingToken = "validating token"
	msgTokenExpired    = "token has expired"
	//nolint:gosec
	errSigningToken = "error signing token"
	//nolint:gosec
	errParsingToken       = "error parsing token"
	errCtxGeneratingToken = "generating token"
	errCtxValidatingToken = "validating token"
)

// Claims определяет структуру данных токена mock-сервера.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет JWT токены mock-сервера.
type TokenService struct {
	secretKey       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewTokenService создает новый сервис токенов.
func NewTokenService(secretKey string, accessTokenTTL, refreshTokenTTL time.Duration) *TokenService {
	return &TokenService{
		secretKey:       []byte(secretKey),
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// GenerateAccessToken выпускает access токен для пользователя.
func (s *TokenService) GenerateAccessToken(ctx context.Context, userID, username string) (string, time.Time, error) {
	return s.generate(ctx, userID, username, s.accessTokenTTL)
}

// GenerateRefreshToken выпускает refresh токен для пользователя.
func (s *TokenService) GenerateRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	return s.generate(ctx, userID, "", s.refreshTokenTTL)
}

func (s *TokenService) generate(ctx context.Context, userID, username string, ttl time.Duration) (string, time.Time, error) {
	log := logger.Log(ctx).With(zap.String("userID", userID))
	log.Debug(ctx, msgGeneratingToken)

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			// Уникальный jti исключает совпадение токенов, выданных
			// в одну секунду.
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		log.Error(ctx, errSigningToken, zap.Error(err))
		return "", time.Time{}, fmt.Errorf("%s: %w", errCtxGeneratingToken, err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken проверяет токен и возвращает ID пользователя.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	log := logger.Log(ctx)
	log.Debug(ctx, msgValidatingToken)

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "token is expired") {
			log.Debug(ctx, msgTokenExpired)
			return "", fmt.Errorf("%s: %w", errCtxValidatingToken, ErrExpiredToken)
		}
		log.Debug(ctx, errParsingToken, zap.Error(err))
		return "", fmt.Errorf("%s: %w: %w", errCtxValidatingToken, ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%s: %w", errCtxValidatingToken, ErrInvalidToken)
	}

	return claims.UserID, nil
}
