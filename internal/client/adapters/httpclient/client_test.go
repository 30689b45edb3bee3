package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apikit/internal/client/adapters/httpclient"
	"apikit/internal/client/config"
	"apikit/pkg/apierrors"
)

func testAPIConfig(baseURL string) *config.APIConfig {
	return &config.APIConfig{
		BaseURL:          baseURL,
		RequestTimeout:   5 * time.Second,
		RetryMaxAttempts: 3,
		RetryBackoff:     time.Millisecond,
		RetryMaxBackoff:  2 * time.Millisecond,
		DedupWindow:      100 * time.Millisecond,
	}
}

func staticToken(token string) httpclient.TokenAccessor {
	return func(_ context.Context) (string, bool) {
		return token, token != ""
	}
}

type echoResponse struct {
	Value string `json:"value"`
}

func TestRetrySucceedsAfterServerErrors(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	var out echoResponse
	err := client.Get(context.Background(), "/items", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
	assert.Equal(t, int32(3), requests.Load())
}

func TestPostIsNotRetriedOnServerError(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	err := client.Post(context.Background(), "/items", map[string]string{"name": "x"}, nil)

	require.Error(t, err)
	assert.Equal(t, apierrors.CodeServiceUnavailable, apierrors.CodeOf(err))
	assert.Equal(t, int32(1), requests.Load())
}

func TestAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{
		Tokens: staticToken("token-abc"),
	})

	require.NoError(t, client.Get(context.Background(), "/me", nil, nil))

	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestRefreshOn401ThenReplayWithNewToken(t *testing.T) {
	var mu sync.Mutex
	var seenTokens []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		mu.Lock()
		seenTokens = append(seenTokens, token)
		mu.Unlock()

		if token != "fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"value":"authorized"}`))
	}))
	defer server.Close()

	currentToken := "stale-token"
	var refreshCalls atomic.Int32

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{
		Tokens: func(_ context.Context) (string, bool) {
			return currentToken, true
		},
		Refresh: func(_ context.Context) (string, error) {
			refreshCalls.Add(1)
			currentToken = "fresh-token"
			return currentToken, nil
		},
	})

	var out echoResponse
	err := client.Get(context.Background(), "/me", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "authorized", out.Value)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, []string{"stale-token", "fresh-token"}, seenTokens)
}

func TestRefreshFailureSurfacesUnauthorized(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var unauthorizedCalls atomic.Int32

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{
		Tokens: staticToken("stale"),
		Refresh: func(_ context.Context) (string, error) {
			return "", apierrors.New(apierrors.CodeTokenExpired, "refresh token rejected")
		},
		OnUnauthorized: func(_ context.Context) {
			unauthorizedCalls.Add(1)
		},
	})

	err := client.Get(context.Background(), "/me", nil, nil)

	require.Error(t, err)
	assert.Equal(t, apierrors.CodeUnauthorized, apierrors.CodeOf(err))
	// Отказ refresh прерывает цикл: повторных запросов нет.
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(1), unauthorizedCalls.Load())
}

func TestRepeated401AfterRefreshStops(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var refreshCalls atomic.Int32

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{
		Tokens: staticToken("any"),
		Refresh: func(_ context.Context) (string, error) {
			refreshCalls.Add(1)
			return "new-token", nil
		},
	})

	err := client.Get(context.Background(), "/me", nil, nil)

	require.Error(t, err)
	assert.Equal(t, apierrors.CodeUnauthorized, apierrors.CodeOf(err))
	// Обновление происходит не более одного раза за цикл.
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), requests.Load())
}

func TestCancelledContextShortCircuits(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Get(ctx, "/me", nil, nil)

	require.Error(t, err)
	assert.Equal(t, apierrors.CodeNetwork, apierrors.CodeOf(err))
	assert.True(t, apierrors.IsCancelled(err))
	assert.Equal(t, int32(0), requests.Load())
}

func TestErrorEnvelopeMessageIsUsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"email already registered"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	err := client.Post(context.Background(), "/register", map[string]string{}, nil)

	require.Error(t, err)
	apiErr := apierrors.Normalize(err)
	assert.Equal(t, apierrors.CodeConflict, apiErr.Code)
	assert.Equal(t, "email already registered", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestMalformedBodySurfacesNormalizedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	var out echoResponse
	err := client.Get(context.Background(), "/items", nil, &out)

	require.Error(t, err)
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.CodeUnknown, apiErr.Code)
	assert.False(t, apiErr.Retryable)
}

func TestGetDeduplicationWithinWindow(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"value":"shared"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	query := url.Values{"page": {"1"}}

	var wg sync.WaitGroup
	results := make([]echoResponse, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/items", query, &results[i])
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, "shared", results[0].Value)
	assert.Equal(t, "shared", results[1].Value)
	assert.Equal(t, int32(1), requests.Load())
}

func TestDedupEntryClearedAfterCancelledLeader(t *testing.T) {
	var requests atomic.Int32
	firstHit := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			close(firstHit)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	cfg := testAPIConfig(server.URL)
	cfg.RetryBackoff = 500 * time.Millisecond
	cfg.RetryMaxBackoff = time.Second
	cfg.DedupWindow = 2 * time.Second
	client := httpclient.NewClient(cfg, httpclient.Deps{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-firstHit
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// Лидер получает 503 и отменяется во время отступа перед повтором.
	err := client.Get(ctx, "/items", nil, nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsCancelled(err))
	assert.Equal(t, int32(1), requests.Load())

	// Запись отмененного лидера удалена: следующий вызов внутри окна
	// выполняет собственный сетевой запрос, а не наследует отмену.
	var out echoResponse
	err = client.Get(context.Background(), "/items", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
	assert.Equal(t, int32(2), requests.Load())
}

func TestGetDeduplicationExpiresAfterWindow(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	cfg := testAPIConfig(server.URL)
	cfg.DedupWindow = 30 * time.Millisecond
	client := httpclient.NewClient(cfg, httpclient.Deps{})

	require.NoError(t, client.Get(context.Background(), "/items", nil, nil))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Get(context.Background(), "/items", nil, nil))

	assert.Equal(t, int32(2), requests.Load())
}

func TestDifferentQueriesAreNotDeduplicated(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	require.NoError(t, client.Get(context.Background(), "/items", url.Values{"page": {"1"}}, nil))
	require.NoError(t, client.Get(context.Background(), "/items", url.Values{"page": {"2"}}, nil))

	assert.Equal(t, int32(2), requests.Load())
}

func TestWritesAreNeverDeduplicated(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(testAPIConfig(server.URL), httpclient.Deps{})

	require.NoError(t, client.Post(context.Background(), "/items", map[string]string{"n": "1"}, nil))
	require.NoError(t, client.Post(context.Background(), "/items", map[string]string{"n": "1"}, nil))

	assert.Equal(t, int32(2), requests.Load())
}
