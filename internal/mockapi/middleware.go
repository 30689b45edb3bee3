package mockapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"apikit/pkg/logger"
)

// Константы для логирования.
const (
	LogAuthMiddleware = "mockapi auth middleware"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	bearerPrefix        = "Bearer "

	localsUserID = "userID"
)

// NewLoggerMiddleware создает промежуточное ПО для логирования HTTP
// запросов. Идентификатор запроса берется из заголовка X-Request-ID.
func NewLoggerMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := logger.NewRequestIDContext(ctx.Context(), ctx.Get(headerRequestID))
		start := time.Now()

		log := logger.Log(requestCtx).With(
			zap.String("path", ctx.Path()),
			zap.String("method", ctx.Method()),
			zap.String("ip", ctx.IP()),
		)

		log.Info(requestCtx, "Request started")

		err := ctx.Next()

		latency := time.Since(start)
		status := ctx.Response().StatusCode()

		logFields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}

		if err != nil {
			log.Error(requestCtx, "Request failed", append(logFields, zap.Error(err))...)
			return fmt.Errorf("request processing error: %w", err)
		}

		log.Info(requestCtx, "Request completed", logFields...)
		return nil
	}
}

// NewLatencyMiddleware создает промежуточное ПО, имитирующее сетевую
// задержку настоящего бэкенда.
func NewLatencyMiddleware(delay time.Duration) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		if delay > 0 {
			time.Sleep(delay)
		}
		return ctx.Next()
	}
}

// NewAuthMiddleware создает промежуточное ПО для проверки
// аутентификации по bearer токену.
func NewAuthMiddleware(tokens *TokenService) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := ctx.Context()
		log := logger.Log(requestCtx).With(zap.String("middleware", "auth"))
		log.Debug(requestCtx, LogAuthMiddleware)

		authHeader := ctx.Get(headerAuthorization)
		if authHeader == "" {
			log.Debug(requestCtx, ErrorNoAuthHeader)
			return sendErrorResponse(ctx, fiber.StatusUnauthorized, ErrorNoAuthHeader)
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug(requestCtx, ErrorInvalidTokenFormat)
			return sendErrorResponse(ctx, fiber.StatusUnauthorized, ErrorInvalidTokenFormat)
		}

		userID, err := tokens.ValidateToken(requestCtx, strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			log.Debug(requestCtx, ErrorInvalidTokenFormat, zap.Error(err))
			return sendErrorResponse(ctx, fiber.StatusUnauthorized, err.Error())
		}

		ctx.Locals(localsUserID, userID)

		return ctx.Next()
	}
}
