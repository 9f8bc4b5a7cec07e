// ABOUTME: HTTP server assembly for helmgate
// ABOUTME: Wires the store, identity provider, roster kernel, and web console

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/config"
	"github.com/helmgate/helmgate/internal/identity"
	"github.com/helmgate/helmgate/internal/roster"
	"github.com/helmgate/helmgate/internal/store"
	"github.com/helmgate/helmgate/internal/webconsole"
)

// sessionSweepInterval is how often expired console sessions are purged.
const sessionSweepInterval = time.Hour

// Server is the assembled helmgate process: storage, policy kernel, and the
// HTTP surface (browser console plus JSON API).
type Server struct {
	config *config.Config
	logger *slog.Logger

	store      *store.SQLiteStore
	kernel     *roster.Service
	httpServer *http.Server
}

// New creates a Server from configuration. The SQLite store is opened and
// schema-migrated here; Run starts listening.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	idp := identity.NewLocalProvider(st, st)
	kernel := roster.New(st, idp, st, roster.Config{
		MainAdminEmail: cfg.Auth.MainAdminEmail,
	})
	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))

	console := webconsole.New(st, idp, kernel, verifier, webconsole.Config{
		BaseURL:         cfg.Console.BaseURL,
		SessionDuration: cfg.Auth.SessionDuration,
	})

	mux := http.NewServeMux()
	console.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
	})

	s := &Server{
		config: cfg,
		logger: logger.With("component", "server"),
		store:  st,
		kernel: kernel,
		httpServer: &http.Server{
			Addr:         cfg.Server.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
	return s, nil
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.config.Server.HTTPAddr)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go s.sweepSessions(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		s.logger.Error("http server failed", "error", serveErr)
	}

	shutdownErr := s.shutdown()
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// shutdown uses a fresh context with timeout since the run context is
// already canceled by the time it is called.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	return firstErr
}

// sweepSessions periodically removes expired console sessions. Expired
// sessions are already invisible to reads; the sweep just keeps the table
// from growing.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.DeleteExpiredSessions(ctx); err != nil {
				s.logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}
