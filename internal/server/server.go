package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"transaction-ledger-go/internal/api"
	"transaction-ledger-go/internal/metrics"
	"transaction-ledger-go/internal/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const apiPrefix = "/api/v1/transactionService"

type Server struct {
	httpServer *http.Server
}

// NewRouter wires the transaction routes. When jwtSecret is non-empty every route under
// the API prefix requires a bearer token; /healthz and /metrics stay public.
func NewRouter(ledger *api.LedgerService, jwtSecret string) *mux.Router {
	h := NewHandler(ledger)

	r := mux.NewRouter()
	r.Use(loggingMiddleware, metrics.Middleware(routeTemplate))

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	apiRouter := r.PathPrefix(apiPrefix).Subrouter()
	if jwtSecret != "" {
		apiRouter.Use(authMiddleware([]byte(jwtSecret)))
	}
	apiRouter.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	apiRouter.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	apiRouter.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	apiRouter.HandleFunc("/transactions/{id}/transition", h.TransitionTransaction).Methods(http.MethodPost)
	apiRouter.HandleFunc("/{id}", h.GetTransaction).Methods(http.MethodGet)

	return r
}

func New(cfg models.ServerConfig, ledger *api.LedgerService) *Server {
	var handler http.Handler = NewRouter(ledger, cfg.JWTSecret)
	if cfg.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: cfg.IdleTimeout})
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start blocks until the server stops; a graceful Shutdown returns nil.
func (s *Server) Start() error {
	zap.L().Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
