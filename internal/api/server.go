// Package api provides the HTTP REST API for ProfileHub.
//
// It exposes registration, session (login/refresh/logout), and role-gated
// profile endpoints, backed by the auth package for token and session
// semantics.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"profilehub/internal/audit"
	"profilehub/internal/auth"
	"profilehub/internal/infrastructure/config"
	"profilehub/internal/infrastructure/logging"
	"profilehub/internal/infrastructure/media"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Users     auth.UserRepository
	Sessions  *auth.SessionManager
	Tokens    *auth.TokenService
	AuditRepo audit.Repository // optional: audit trail disabled when nil
	Media     media.Store      // optional: photo uploads rejected when nil
	Version   string
}

// Server is the HTTP API server for ProfileHub.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	users     auth.UserRepository
	sessions  *auth.SessionManager
	tokens    *auth.TokenService
	auditRepo audit.Repository
	media     media.Store
	version   string
	server    *http.Server
	auditCh   chan *audit.Entry
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	// Media is optional — registration without a photo host rejects uploads

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		users:     deps.Users,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		auditRepo: deps.AuditRepo,
		media:     deps.Media,
		version:   deps.Version,
	}

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the async audit writer, and launches the
// HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (audit writer)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
