package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/server/handler"
	"github.com/alanyoungcy/dexdepth/internal/service"
	"github.com/alanyoungcy/dexdepth/internal/token"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

func newTestServer(t *testing.T, cfg Config, limiter domain.RateLimiter) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := token.NewRegistry([]domain.TokenDetails{
		{ID: 0, Symbol: "OWL", Address: "0x1A5F9352Af8aF974bFC03399e3767DF6370d82e4"},
	})
	require.NoError(t, err)

	srv := NewServer(cfg, Handlers{
		Health: handler.NewHealthHandler(nil, logger),
		Tokens: handler.NewTokenHandler(tokens, logger),
		Price:  handler.NewPriceHandler(service.NewPriceService()),
	}, limiter, nil, logger)
	return srv.Handler()
}

func get(h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	h := newTestServer(t, Config{}, nil)

	assert.Equal(t, http.StatusOK, get(h, "/api/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/tokens", nil).Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/tokens/OWL", nil).Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/price/invert?price=2", nil).Code)
	// Depth, quote and poll handlers were not supplied.
	assert.Equal(t, http.StatusNotFound, get(h, "/api/orderbook/1/0/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/orderbook/poll", nil).Code)
	assert.NotEmpty(t, get(h, "/api/tokens", nil).Header().Get("X-Request-ID"))
}

func TestServer_PollRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trigger := make(chan struct{}, 1)
	h := NewServer(Config{}, Handlers{Poll: handler.NewPollHandler(trigger, logger)}, nil, nil, logger).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orderbook/poll", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, trigger, 1)

	assert.Equal(t, http.StatusMethodNotAllowed, get(h, "/api/orderbook/poll", nil).Code)
}

func TestServer_Auth(t *testing.T) {
	h := newTestServer(t, Config{APIKey: "k"}, nil)

	assert.Equal(t, http.StatusOK, get(h, "/api/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, "/api/tokens", nil).Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/tokens", map[string]string{"X-API-Key": "k"}).Code)
}

func TestServer_RateLimit(t *testing.T) {
	h := newTestServer(t, Config{RateLimit: 1, RateWindow: time.Second}, denyAll{})
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/tokens", nil).Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/health", nil).Code)

	h = newTestServer(t, Config{}, denyAll{})
	assert.Equal(t, http.StatusOK, get(h, "/api/tokens", nil).Code)
}
