// Package httpapi exposes the bookkeeping services over REST. Handlers are
// thin: they decode, call one service method and encode the result.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinoosan/bookkeeping/internal/service/account"
	"github.com/tinoosan/bookkeeping/internal/service/balance"
	"github.com/tinoosan/bookkeeping/internal/service/document"
	"github.com/tinoosan/bookkeeping/internal/service/fiscal"
	"github.com/tinoosan/bookkeeping/internal/service/journal"
	"github.com/tinoosan/bookkeeping/internal/service/sequence"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// Services bundles the domain services the API delegates to.
type Services struct {
	Accounts  account.Service
	Fiscal    fiscal.Service
	Journals  journal.Engine
	Documents document.Service
	Balances  balance.Service
	Numbers   sequence.Generator
}

// NewServices builds every service on top of one store.
func NewServices(store storage.Store, logger *slog.Logger) Services {
	engine := journal.New(store, logger)
	numbers := sequence.New(store)
	return Services{
		Accounts:  account.New(store, logger),
		Fiscal:    fiscal.New(store, logger),
		Journals:  engine,
		Documents: document.New(store, engine, numbers, logger),
		Balances:  balance.New(store, logger),
		Numbers:   numbers,
	}
}

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed origins; empty disables cross-origin access.
	CORSOrigins []string
}

// Server wires handlers and middleware using Chi.
type Server struct {
	store storage.Store
	svc   Services
	log   *slog.Logger
	rt    *chi.Mux
}

// New constructs the HTTP server with routes and middleware. store is used
// for the business lookup every scoped route starts with and, when it has a
// Ready method, for /readyz.
func New(store storage.Store, svc Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{store: store, svc: svc, log: logger, rt: r}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }
