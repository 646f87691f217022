// Package server exposes the market core to the UI over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/pharosbet/internal/server/handler"
	"github.com/alanyoungcy/pharosbet/internal/server/middleware"
	"github.com/alanyoungcy/pharosbet/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers groups the route handlers. Refresh may be nil when the process
// does not reconcile.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Session *handler.SessionHandler
	Refresh *handler.RefreshHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the middleware chain.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      Routes(cfg, handlers, hub, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger.With(slog.String("component", "server"))}
}

// Routes builds the handler tree.
func Routes(cfg Config, h Handlers, hub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("GET /api/markets", h.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/featured", h.Markets.Featured)
	mux.HandleFunc("GET /api/markets/trending", h.Markets.Trending)
	mux.HandleFunc("GET /api/markets/{id}", h.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets", h.Markets.CreateMarket)
	mux.HandleFunc("POST /api/markets/{id}/quote", h.Markets.Quote)
	mux.HandleFunc("POST /api/markets/{id}/trades", h.Markets.Trade)

	mux.HandleFunc("GET /api/session", h.Session.Get)
	mux.HandleFunc("POST /api/session/connect", h.Session.Connect)
	mux.HandleFunc("POST /api/session/disconnect", h.Session.Disconnect)
	mux.HandleFunc("POST /api/session/switch", h.Session.Switch)

	if h.Refresh != nil {
		mux.HandleFunc("POST /api/refresh", h.Refresh.Refresh)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var root http.Handler = mux
	root = middleware.Auth(cfg.APIKey, "/api/health")(root)
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)
	return root
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
