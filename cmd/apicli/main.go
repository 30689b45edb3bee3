// Команда apicli демонстрирует полный жизненный цикл сессии через
// клиентский SDK: вход, запрос профиля, обновление токенов и выход.
// При включенном mock-режиме поднимает встроенный mock-сервер.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"apikit/internal/client/adapters/api"
	"apikit/internal/client/adapters/httpclient"
	"apikit/internal/client/adapters/storage"
	"apikit/internal/client/app"
	"apikit/internal/client/config"
	portstorage "apikit/internal/client/ports/storage"
	"apikit/internal/mockapi"
	"apikit/pkg/logger"
	"apikit/pkg/result"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "APIKIT_LOGGER_MODE"
	EnvLoggerLevel = "APIKIT_LOGGER_LEVEL"
	EnvEmail       = "APIKIT_DEMO_EMAIL"
	EnvPassword    = "APIKIT_DEMO_PASSWORD"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrCreateStorage        = "failed to create token storage"
	ErrStartMockServer      = "failed to start mock server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogClientStarted   = "API client demo started"
	LogMockStarted     = "embedded mock server started"
	LogLoginOK         = "login succeeded"
	LogLoginFailed     = "login failed"
	LogProfileOK       = "profile fetched"
	LogProfileFailed   = "profile fetch failed"
	LogRefreshOK       = "tokens refreshed"
	LogRefreshFailed   = "token refresh failed"
	LogLogoutOK        = "logout complete"
	LogLogoutFailed    = "logout failed"
	LogSessionRestored = "session restored from storage"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogClientStarted, zap.String("base_url", cfg.API.BaseURL))

		if cfg.Mock.Enabled {
			mockApp := mockapi.NewApp(&cfg.Mock)
			go func() {
				if err := mockApp.Listen(cfg.Mock.GetAddress()); err != nil {
					log.Error(ctx, ErrStartMockServer, zap.Error(err))
				}
			}()
			defer func() {
				_ = mockApp.Shutdown()
			}()
			log.Info(ctx, LogMockStarted, zap.String("address", cfg.Mock.GetAddress()))
			// Даем серверу время подняться.
			time.Sleep(200 * time.Millisecond)
		}

		tokenStorage, err := newTokenStorage(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrCreateStorage, zap.Error(err))
			exitCode = 1
			return
		}
		defer func() {
			_ = tokenStorage.Close()
		}()

		// Разрыв циклической зависимости клиент-хранилище: сначала
		// клиент без аутентификации, затем хранилище сессии, затем
		// аутентифицированный клиент с колбэками хранилища.
		bareClient := httpclient.NewClient(&cfg.API, httpclient.Deps{})
		authAPI := api.NewAuthClient(bareClient)
		store := app.NewAuthStore(&cfg.Session, authAPI, tokenStorage)

		authedClient := httpclient.NewClient(&cfg.API, httpclient.Deps{
			Tokens:         store.AccessToken,
			Refresh:        store.RefreshAccessToken,
			OnUnauthorized: store.HandleUnauthorized,
		})
		userAPI := api.NewUserClient(authedClient)

		if err := store.Restore(ctx); err == nil {
			if sess := store.Session(); sess.Active() {
				log.Info(ctx, LogSessionRestored)
			}
		}

		email := os.Getenv(EnvEmail)
		if email == "" {
			email = mockapi.DemoEmail
		}
		password := os.Getenv(EnvPassword)
		if password == "" {
			password = mockapi.DemoPassword
		}

		loginRes := result.Wrap(store.Login(ctx, email, password))
		if !loginRes.Ok {
			log.Error(ctx, LogLoginFailed, zap.String("message", loginRes.UserMessage()))
			exitCode = 1
			return
		}
		log.Info(ctx, LogLoginOK,
			zap.String("user_id", loginRes.Data.ID),
			zap.String("email", loginRes.Data.Email))

		profileRes := result.Wrap(userAPI.Profile(ctx))
		if !profileRes.Ok {
			log.Error(ctx, LogProfileFailed, zap.String("message", profileRes.UserMessage()))
		} else {
			log.Info(ctx, LogProfileOK,
				zap.String("username", profileRes.Data.Username),
				zap.Time("created_at", profileRes.Data.CreatedAt))
		}

		if _, err := store.RefreshAccessToken(ctx); err != nil {
			log.Error(ctx, LogRefreshFailed, zap.Error(err))
		} else {
			log.Info(ctx, LogRefreshOK)
		}

		if err := store.Logout(ctx); err != nil {
			log.Error(ctx, LogLogoutFailed, zap.Error(err))
			exitCode = 1
			return
		}
		log.Info(ctx, LogLogoutOK)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// newTokenStorage выбирает хранилище токенов: Redis при включенной
// конфигурации, иначе память процесса.
func newTokenStorage(ctx context.Context, cfg *config.Config) (portstorage.TokenStorage, error) {
	if cfg.Redis.Enabled {
		return storage.NewRedisStorage(ctx, &cfg.Redis)
	}
	return storage.NewMemoryStorage(), nil
}
