// Package httpclient содержит отказоустойчивый HTTP клиент API:
// подстановка bearer токена, сквозной X-Request-ID, повторные попытки
// с экспоненциальным отступом, дедупликация GET запросов и обновление
// токена после 401.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"apikit/internal/client/config"
	"apikit/internal/client/resilience"
	"apikit/pkg/apierrors"
	"apikit/pkg/logger"
)

// Константы для логирования.
const (
	LogRequest           = "http client: request"
	LogRequestFailed     = "http client: request failed"
	LogRefreshingToken   = "http client: refreshing token after 401"
	LogRefreshFailed     = "http client: token refresh failed"
	LogSessionInvalid    = "http client: session invalidated"
	ErrorBuildingRequest = "failed to build request"
	ErrorDecodingBody    = "failed to decode response body"
)

// Заголовки исходящих запросов.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderContentType   = "Content-Type"

	contentTypeJSON = "application/json"
	bearerPrefix    = "Bearer "
)

// TokenAccessor возвращает текущий access токен, если он есть.
// Клиент не импортирует хранилище сессии напрямую: зависимость
// инвертирована, чтобы разорвать цикл клиент-хранилище.
type TokenAccessor func(ctx context.Context) (string, bool)

// RefreshFunc запрашивает новый access токен после 401.
type RefreshFunc func(ctx context.Context) (string, error)

// UnauthorizedHandler вызывается, когда цикл попыток завершился
// неразрешенным 401.
type UnauthorizedHandler func(ctx context.Context)

// Deps - внедряемые зависимости клиента.
type Deps struct {
	Tokens         TokenAccessor
	Refresh        RefreshFunc
	OnUnauthorized UnauthorizedHandler
	// HTTPClient переопределяет транспорт; по умолчанию http.Client
	// с таймаутом из конфигурации.
	HTTPClient *http.Client
}

// Client - HTTP клиент API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenAccessor
	refresh        RefreshFunc
	onUnauthorized UnauthorizedHandler
	retryConfig    resilience.RetryConfig
	breaker        *resilience.CircuitBreaker
	dedup          *dedupCache
}

// retryableStatuses - статусы, после которых запрос повторяется.
var retryableStatuses = map[int]bool{
	401: true,
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// NewClient создает клиент для заданной конфигурации и зависимостей.
func NewClient(cfg *config.APIConfig, deps Deps) *Client {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	retryConfig := resilience.DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		retryConfig.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryBackoff > 0 {
		retryConfig.InitialBackoff = cfg.RetryBackoff
	}
	if cfg.RetryMaxBackoff > 0 {
		retryConfig.MaxBackoff = cfg.RetryMaxBackoff
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		tokens:         deps.Tokens,
		refresh:        deps.Refresh,
		onUnauthorized: deps.OnUnauthorized,
		retryConfig:    retryConfig,
		breaker:        resilience.NewCircuitBreaker("api", resilience.DefaultCircuitBreakerConfig()),
		dedup:          newDedupCache(cfg.DedupWindow),
	}
}

// Get выполняет GET запрос с дедупликацией внутри окна.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post выполняет POST запрос. Запись не дедуплицируется.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put выполняет PUT запрос.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch выполняет PATCH запрос.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete выполняет DELETE запрос.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// idempotentMethod сообщает, безопасно ли повторять метод. POST и PATCH
// не повторяются после 5xx: без ключей идемпотентности повтор записи
// может применить ее дважды.
func idempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	// Уже отмененный контекст не должен доходить до сети.
	if err := ctx.Err(); err != nil {
		return apierrors.FromTransport(err)
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apierrors.Normalize(fmt.Errorf("%s: %w", ErrorBuildingRequest, err))
		}
		payload = encoded
	}

	var (
		respBody []byte
		err      error
	)

	if method == http.MethodGet {
		key := method + " " + path + "?" + query.Encode()
		respBody, err = c.dedup.Do(ctx, key, func() ([]byte, error) {
			return c.executeCycle(ctx, method, path, query, payload)
		})
	} else {
		respBody, err = c.executeCycle(ctx, method, path, query, payload)
	}

	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apierrors.Normalize(fmt.Errorf("%s: %w", ErrorDecodingBody, err))
		}
	}
	return nil
}

// executeCycle выполняет один цикл запроса: circuit breaker снаружи,
// повторные попытки внутри, обновление токена после 401 не более одного
// раза за цикл.
func (c *Client) executeCycle(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	log := logger.Log(ctx).With(
		zap.String("http_method", method),
		zap.String("path", path),
	)

	refreshed := false

	retryConfig := c.retryConfig
	retryConfig.ShouldRetry = func(err error) bool {
		var apiErr *apierrors.Error
		if !errors.As(err, &apiErr) || apiErr.Cancelled {
			return false
		}
		if apiErr.HTTPStatus == http.StatusUnauthorized {
			return c.refresh != nil
		}
		if !idempotentMethod(method) {
			return false
		}
		if apiErr.HTTPStatus != 0 {
			return retryableStatuses[apiErr.HTTPStatus]
		}
		return apiErr.Retryable
	}
	retryConfig.OnRetry = func(ctx context.Context, _ int, err error) error {
		if apierrors.CodeOf(err) != apierrors.CodeUnauthorized {
			return nil
		}
		if refreshed {
			// Обновленный токен снова отвергнут - цикл прерывается,
			// наружу уходит исходный 401.
			return err
		}
		refreshed = true

		log.Info(ctx, LogRefreshingToken)
		if _, refreshErr := c.refresh(ctx); refreshErr != nil {
			log.Warn(ctx, LogRefreshFailed, zap.Error(refreshErr))
			return err
		}
		return nil
	}

	retry := resilience.NewRetry("api", retryConfig)

	var respBody []byte
	err := c.breaker.Execute(ctx, func() error {
		return retry.Execute(ctx, func() error {
			var attemptErr error
			respBody, attemptErr = c.attempt(ctx, method, path, query, payload)
			return attemptErr
		})
	})

	if err != nil {
		log.Warn(ctx, LogRequestFailed, zap.Error(err))
		// Callback вызывается ровно один раз за цикл: этот блок - единственная
		// точка выхода цикла с ошибкой.
		if apierrors.CodeOf(err) == apierrors.CodeUnauthorized && c.onUnauthorized != nil {
			log.Info(ctx, LogSessionInvalid)
			c.onUnauthorized(ctx)
		}
		return nil, err
	}
	return respBody, nil
}

// errorEnvelope - тело ошибки, которое возвращает сервер.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// attempt выполняет один сетевой запрос и нормализует исход.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	requestID := logger.GenerateRequestID()
	ctx = logger.NewRequestIDContext(ctx, requestID)
	log := logger.Log(ctx)

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, apierrors.Normalize(fmt.Errorf("%s: %w", ErrorBuildingRequest, err))
	}

	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set(HeaderContentType, contentTypeJSON)
	}
	if c.tokens != nil {
		if token, ok := c.tokens(ctx); ok && token != "" {
			req.Header.Set(HeaderAuthorization, bearerPrefix+token)
		}
	}

	log.Debug(ctx, LogRequest, zap.String("url", u))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.FromTransport(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope errorEnvelope
		message := ""
		if json.Unmarshal(respBody, &envelope) == nil {
			if envelope.Error != "" {
				message = envelope.Error
			} else {
				message = envelope.Message
			}
		}
		return nil, apierrors.FromStatus(resp.StatusCode, message, requestID)
	}

	return respBody, nil
}
