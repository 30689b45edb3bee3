package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"apikit/internal/client/config"
	"apikit/internal/client/domain/entities"
	portsapi "apikit/internal/client/ports/api"
	portstorage "apikit/internal/client/ports/storage"
	"apikit/pkg/logger"
)

// Константы для логирования.
const (
	LogStoreLogin          = "auth store: login"
	LogStoreRegister       = "auth store: register"
	LogStoreLogout         = "auth store: logout"
	LogStoreRefresh        = "auth store: refresh tokens" // nolint:gosec
	LogStoreRestored       = "auth store: session restored from storage"
	LogStoreTeardown       = "auth store: session teardown"
	LogStoreSessionExpired = "auth store: session expired"

	msgErrRemoteLogout   = "remote logout failed, clearing local session anyway"
	msgErrPersistTokens  = "failed to persist tokens"
	msgErrPersistTouch   = "failed to persist activity timestamp"
	msgErrClearStorage   = "failed to clear token storage"
	msgErrRestoreSession = "failed to restore session from storage"

	errCtxLogin    = "login"
	errCtxRegister = "register"
	errCtxRefresh  = "refresh"
)

// AuthStore хранит состояние сессии и управляет ее жизненным циклом.
// HTTP клиент получает от хранилища только колбэки (доступ к токену,
// обновление, обработка 401), а не само хранилище.
type AuthStore struct {
	api         portsapi.AuthAPI
	storage     portstorage.TokenStorage
	coordinator *RefreshCoordinator
	idleTimeout time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	session entities.Session
}

// NewAuthStore создает хранилище сессии с внедренными зависимостями.
func NewAuthStore(cfg *config.SessionConfig, authAPI portsapi.AuthAPI, tokenStorage portstorage.TokenStorage) *AuthStore {
	store := &AuthStore{
		api:         authAPI,
		storage:     tokenStorage,
		idleTimeout: cfg.IdleTimeout,
		now:         time.Now,
	}
	store.coordinator = NewRefreshCoordinator(store.doRefresh)
	return store
}

// SetNowFunc подменяет источник времени. Используется в тестах.
func (s *AuthStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Restore загружает сохраненную сессию из хранилища токенов.
func (s *AuthStore) Restore(ctx context.Context) error {
	log := logger.Log(ctx)

	access, refresh, err := s.storage.LoadTokens(ctx)
	if err != nil {
		log.Warn(ctx, msgErrRestoreSession, zap.Error(err))
		return fmt.Errorf("%s: %w", msgErrRestoreSession, err)
	}
	lastActivity, err := s.storage.LoadLastActivity(ctx)
	if err != nil {
		log.Warn(ctx, msgErrRestoreSession, zap.Error(err))
		return fmt.Errorf("%s: %w", msgErrRestoreSession, err)
	}

	s.mu.Lock()
	s.session.AccessToken = access
	s.session.RefreshToken = refresh
	s.session.LastActivityAt = lastActivity
	s.mu.Unlock()

	if access != "" {
		log.Info(ctx, LogStoreRestored)
	}
	return nil
}

// Login аутентифицирует пользователя и активирует сессию.
func (s *AuthStore) Login(ctx context.Context, email, password string) (*entities.User, error) {
	log := logger.Log(ctx).With(zap.String("email", email))
	log.Info(ctx, LogStoreLogin)

	pair, user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtxLogin, err)
	}

	s.activate(ctx, pair, user)
	return user, nil
}

// Register создает нового пользователя и активирует сессию.
func (s *AuthStore) Register(ctx context.Context, email, username, password string) (*entities.User, error) {
	log := logger.Log(ctx).With(zap.String("email", email))
	log.Info(ctx, LogStoreRegister)

	pair, user, err := s.api.Register(ctx, email, username, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtxRegister, err)
	}

	s.activate(ctx, pair, user)
	return user, nil
}

// Logout выполняет выход: сначала запрос на сервер (при неудаче только
// логируется), затем безусловная очистка локального состояния.
func (s *AuthStore) Logout(ctx context.Context) error {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoreLogout)

	s.mu.RLock()
	refreshToken := s.session.RefreshToken
	s.mu.RUnlock()

	if refreshToken != "" {
		if err := s.api.Logout(ctx, refreshToken); err != nil {
			log.Warn(ctx, msgErrRemoteLogout, zap.Error(err))
		}
	}

	s.teardown(ctx)
	return nil
}

// RefreshAccessToken обновляет токены через координатор и возвращает
// новый access токен.
func (s *AuthStore) RefreshAccessToken(ctx context.Context) (string, error) {
	pair, err := s.coordinator.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtxRefresh, err)
	}
	return pair.AccessToken, nil
}

// doRefresh - сетевое обновление, запускаемое координатором не более
// одного раза одновременно. Неудача обновления разрушает сессию.
func (s *AuthStore) doRefresh(ctx context.Context) (*entities.TokenPair, error) {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoreRefresh)

	s.mu.RLock()
	refreshToken := s.session.RefreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return nil, entities.ErrNoRefreshToken
	}

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.teardown(ctx)
		return nil, fmt.Errorf("%s: %w", errCtxRefresh, err)
	}

	s.mu.Lock()
	s.session.AccessToken = pair.AccessToken
	s.session.RefreshToken = pair.RefreshToken
	s.session.LastActivityAt = s.now()
	s.mu.Unlock()

	s.persistTokens(ctx, pair)
	return pair, nil
}

// AccessToken возвращает текущий access токен. Форма совпадает с
// httpclient.TokenAccessor.
func (s *AuthStore) AccessToken(_ context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken, s.session.AccessToken != ""
}

// HandleUnauthorized разрушает сессию после неразрешимого 401.
// Форма совпадает с httpclient.UnauthorizedHandler.
func (s *AuthStore) HandleUnauthorized(ctx context.Context) {
	s.teardown(ctx)
}

// RecordActivity обновляет отметку последней активности пользователя.
func (s *AuthStore) RecordActivity(ctx context.Context) {
	s.mu.Lock()
	if !s.session.Active() {
		s.mu.Unlock()
		return
	}
	at := s.now()
	s.session.LastActivityAt = at
	s.mu.Unlock()

	if err := s.storage.SaveLastActivity(ctx, at); err != nil {
		logger.Log(ctx).Warn(ctx, msgErrPersistTouch, zap.Error(err))
	}
}

// IsSessionExpired сообщает, истекла ли сессия по таймауту неактивности.
func (s *AuthStore) IsSessionExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.ExpiredAfter(s.idleTimeout, s.now())
}

// Session возвращает снимок текущей сессии.
func (s *AuthStore) Session() entities.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// TokenExpiresAt возвращает срок действия access токена из его claims.
// Подпись не проверяется: у клиента нет ключа, срок нужен только как
// подсказка для досрочного обновления.
func (s *AuthStore) TokenExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	token := s.session.AccessToken
	s.mu.RUnlock()

	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// StartExpiryWatcher запускает периодическую проверку сессии. При
// обнаружении истечения выполняется logout и вызывается onExpired
// (навигация на экран входа). Останавливается отменой контекста.
func (s *AuthStore) StartExpiryWatcher(ctx context.Context, interval time.Duration, onExpired func(ctx context.Context)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.IsSessionExpired() {
					continue
				}
				logger.Log(ctx).Info(ctx, LogStoreSessionExpired)
				_ = s.Logout(ctx)
				if onExpired != nil {
					onExpired(ctx)
				}
			}
		}
	}()
}

// activate устанавливает новую сессию и сохраняет ее в хранилище.
func (s *AuthStore) activate(ctx context.Context, pair *entities.TokenPair, user *entities.User) {
	s.mu.Lock()
	now := s.now()
	s.session = entities.Session{
		User:           user,
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		LastActivityAt: now,
	}
	s.mu.Unlock()

	s.persistTokens(ctx, pair)
	if err := s.storage.SaveLastActivity(ctx, now); err != nil {
		logger.Log(ctx).Warn(ctx, msgErrPersistTouch, zap.Error(err))
	}
}

// teardown безусловно очищает сессию и хранилище.
func (s *AuthStore) teardown(ctx context.Context) {
	log := logger.Log(ctx)
	log.Info(ctx, LogStoreTeardown)

	s.mu.Lock()
	s.session = entities.Session{}
	s.mu.Unlock()

	if err := s.storage.Clear(ctx); err != nil {
		log.Warn(ctx, msgErrClearStorage, zap.Error(err))
	}
}

// persistTokens сохраняет пару токенов, неудача только логируется:
// активная сессия в памяти важнее персистентности.
func (s *AuthStore) persistTokens(ctx context.Context, pair *entities.TokenPair) {
	if err := s.storage.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		logger.Log(ctx).Warn(ctx, msgErrPersistTokens, zap.Error(err))
	}
}
