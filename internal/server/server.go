// Package server exposes the assistant to the web front-end: a websocket chat
// endpoint plus the small JSON API the pages call directly.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/config"
	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/storage"
)

// AgentFactory builds an agent whose functions run against sc.
type AgentFactory func(sc *session.Context) *agent.Agent

// KeyValidator checks a completion API key before it is stored.
type KeyValidator func(ctx context.Context, apiKey string) error

// Server is the HTTP server for the IBRL web API.
type Server struct {
	cfg         *config.Config
	session     *session.Context
	credentials storage.CredentialStore
	agent       *agent.Agent // lists functions for the API
	validateKey KeyValidator
	sessions    *SessionManager
	logger      *slog.Logger
	router      chi.Router
	http        *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithKeyValidator replaces the default provider round-trip used to check keys.
func WithKeyValidator(v KeyValidator) Option {
	return func(s *Server) { s.validateKey = v }
}

// New creates a new Server. sc serves the JSON API. Each websocket
// connection gets a fork of sc (its own balance cache, shared API clients)
// and an agent built by newAgent against that fork.
func New(cfg *config.Config, sc *session.Context, creds storage.CredentialStore, newAgent AgentFactory, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:         cfg,
		session:     sc,
		credentials: creds,
		agent:       newAgent(sc),
		logger:      logger,
		router:      chi.NewRouter(),
	}
	s.sessions = NewSessionManager(func() (*session.Context, *agent.Agent) {
		fork := sc.Fork()
		return fork, newAgent(fork)
	})
	s.validateKey = s.providerKeyValidator
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		// Websocket (no JSON content-type)
		r.Get("/chat/ws", s.handleChatSocket)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)

			r.Get("/functions", s.handleListFunctions)
			r.Get("/price", s.handlePrice)
			r.Get("/wallet", s.handleWallet)
			r.Get("/lulo/rates", s.handleLuloRates)
			r.Post("/nft/mint", s.handleMintNFT)

			r.Get("/credential", s.handleCredentialStatus)
			r.Post("/credential", s.handleSetCredential)
			r.Delete("/credential", s.handleDeleteCredential)
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) providerKeyValidator(ctx context.Context, apiKey string) error {
	provider, err := s.cfg.Provider(s.cfg.DefaultProvider)
	if err != nil {
		return err
	}
	return llm.NewClient(provider.BaseURL, apiKey, provider.Models["default"]).ValidateKey(ctx)
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("IBRL server starting", "addr", "http://localhost"+addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.sessions.CloseAll()
	if s.http == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
