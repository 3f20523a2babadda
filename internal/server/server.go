// Package server exposes a resolution runtime over HTTP: JSON endpoints for
// domains, exports and resolution, and a server-sent event stream that
// announces export index refreshes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/leapark/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// LoadFunc returns the current manifest for a reload.
type LoadFunc func() (*manifest.Manifest, error)

// Config holds configuration for the server.
type Config struct {
	Runtime *manifest.Runtime
	// Load is used by reloads; nil disables POST /api/reload.
	Load   LoadFunc
	Addr   string
	Logger *slog.Logger
}

// Server serves one runtime.
type Server struct {
	rt       *manifest.Runtime
	load     LoadFunc
	addr     string
	logger   *slog.Logger
	feed     *RefreshFeed

	// reloadMu serializes reloads; lookups run concurrently with them.
	reloadMu sync.Mutex
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("server: runtime is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:7070"
	}
	return &Server{
		rt:       cfg.Runtime,
		load:     cfg.Load,
		addr:     addr,
		logger:   logger,
		feed:     NewRefreshFeed(),
	}, nil
}

// Feed returns the export-index refresh feed.
func (s *Server) Feed() *RefreshFeed { return s.feed }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.routes(r)
	return r
}

// Reload registers new units from the manifest, refreshes the export index
// and publishes the refresh to event streams. It returns the number of units added.
func (s *Server) Reload() (int, error) {
	if s.load == nil {
		return 0, errors.New("reload is not configured")
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	m, err := s.load()
	if err != nil {
		return 0, err
	}
	before := s.rt.Registry.Count()
	if err := manifest.RegisterUnits(s.rt.Registry, s.rt.Arena, s.rt.Hierarchy, m.Units); err != nil {
		return 0, err
	}
	s.rt.Service.Refresh()
	added := s.rt.Registry.Count() - before
	gen := s.feed.Refreshed()
	s.logger.Info("runtime reloaded", "new_units", added, "exports", s.rt.Service.Index().Len(), "generation", gen)
	return added, nil
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting resolution server", "addr", "http://"+s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down resolution server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
