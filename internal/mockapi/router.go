package mockapi

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"apikit/internal/client/config"
	"apikit/pkg/logger"
)

// NewRecoveryMiddleware создает промежуточное ПО для восстановления после паники.
func NewRecoveryMiddleware() fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := ctx.Context()
		log := logger.Log(requestCtx)

		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				log.Error(requestCtx, "Server panic",
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(stack)),
				)

				if err := ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal Server Error",
				}); err != nil {
					log.Error(requestCtx, "Failed to send error response after panic", zap.Error(err))
				}
			}
		}()

		return ctx.Next()
	}
}

// NewApp создает fiber приложение mock-сервера с настроенной
// маршрутизацией.
func NewApp(cfg *config.MockConfig) *fiber.App {
	users := NewUserStore()
	tokens := NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	app := fiber.New(fiber.Config{
		AppName: "apikit mock server",
	})
	SetupRouter(app, users, tokens, cfg.Delay)
	return app
}

// SetupRouter настраивает маршрутизацию mock-сервера.
func SetupRouter(app *fiber.App, users *UserStore, tokens *TokenService, delay time.Duration) {
	handler := NewHandler(users, tokens)

	// Middleware для всех запросов.
	app.Use(NewLoggerMiddleware())
	app.Use(NewRecoveryMiddleware())
	app.Use(NewLatencyMiddleware(delay))

	// API версии 1.
	apiV1 := app.Group("/api/v1")

	// Auth routes (публичные).
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/register", handler.Register)
	authRoutes.Post("/login", handler.Login)
	authRoutes.Post("/refresh", handler.Refresh)
	authRoutes.Post("/logout", handler.Logout)

	// Защищенные маршруты.
	userRoutes := apiV1.Group("/user")
	userRoutes.Use(NewAuthMiddleware(tokens))
	userRoutes.Get("/profile", handler.Profile)

	// Обработчик для несуществующих маршрутов.
	app.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})
}
