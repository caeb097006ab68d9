// Package server exposes depth, price and quote data over HTTP and pushes
// depth updates over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/dexdepth/internal/domain"
	"github.com/alanyoungcy/dexdepth/internal/server/handler"
	"github.com/alanyoungcy/dexdepth/internal/server/middleware"
	"github.com/alanyoungcy/dexdepth/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per RateWindow per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. Nil handlers
// leave their routes unregistered.
type Handlers struct {
	Health *handler.HealthHandler
	Tokens *handler.TokenHandler
	Depth  *handler.DepthHandler
	Price  *handler.PriceHandler
	Quote  *handler.QuoteHandler
	Poll   *handler.PollHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. limiter and
// wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}

	if handlers.Tokens != nil {
		mux.HandleFunc("GET /api/tokens", handlers.Tokens.ListTokens)
		mux.HandleFunc("GET /api/tokens/{ref}", handlers.Tokens.GetToken)
	}

	if handlers.Depth != nil {
		mux.HandleFunc("GET /api/orderbook/{network}/{base}/{quote}", handlers.Depth.GetDepth)
		mux.HandleFunc("GET /api/orderbook/{network}/{base}/{quote}/latest", handlers.Depth.GetLatest)
	}

	if handlers.Poll != nil {
		mux.HandleFunc("POST /api/orderbook/poll", handlers.Poll.TriggerPoll)
	}

	if handlers.Price != nil {
		mux.HandleFunc("GET /api/price/invert", handlers.Price.Invert)
		mux.HandleFunc("GET /api/price/normalize", handlers.Price.Normalize)
	}

	if handlers.Quote != nil {
		mux.HandleFunc("GET /api/quote/{network}/{quote}", handlers.Quote.GetQuote)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Outermost first: CORS, logging, rate limit, auth.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
