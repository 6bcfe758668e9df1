package server

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hongminglow/ledger-be/internal/auth"
	"github.com/hongminglow/ledger-be/internal/config"
	"github.com/hongminglow/ledger-be/internal/events"
	"github.com/hongminglow/ledger-be/internal/http/handlers"
	"github.com/hongminglow/ledger-be/internal/ledger"
	"github.com/hongminglow/ledger-be/internal/middleware"
	"github.com/hongminglow/ledger-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server. A nil
// publisher disables ledger events.
func New(cfg config.Config, store storage.Store, publisher events.Publisher) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewHandler(cfg, store, publisher),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// NewHandler builds the full handler chain without binding a listener.
func NewHandler(cfg config.Config, store storage.Store, publisher events.Publisher) http.Handler {
	mux := http.NewServeMux()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	guard := middleware.RequireAuth(tokens)

	handlers.NewHealthHandler(time.Now()).Register(mux)

	authMux := http.NewServeMux()
	handlers.NewAuthHandler(store, tokens, cfg.BcryptCost).Register(authMux, cfg.APIPrefix, guard)
	mux.Handle(cfg.APIPrefix+"/auth/", middleware.NewRateLimiter(cfg.AuthRequestsPerMinute).Middleware(authMux))

	svc := ledger.NewService(store, publisher)
	handlers.NewTransactionHandler(svc).Register(mux, cfg.APIPrefix, guard)

	var handler http.Handler = mux
	handler = middleware.Recover(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CORS(cfg.CORSOrigins, handler)
	return otelhttp.NewHandler(handler, "ledger-api")
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

// Addr reports the address the server binds to.
func (s *Server) Addr() string {
	return s.inner.Addr
}
