// Package server exposes builder sessions over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mcncl/jsonbuilder/internal/formatter"
	"github.com/mcncl/jsonbuilder/internal/logging"
	"github.com/mcncl/jsonbuilder/internal/session"
	"github.com/mcncl/jsonbuilder/internal/transform"
)

const (
	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server. MaxErrorsShown caps the problems listed in a
// refused finalize; 0 lists all of them. LogRequests logs every request at
// info level instead of debug.
type Options struct {
	Addr           string
	MaxAge         time.Duration
	IdleTimeout    time.Duration
	MaxErrorsShown int
	LogRequests    bool
	Transformer    *transform.Transformer
	Logger         *slog.Logger
}

// Server owns the session store and the HTTP handlers.
type Server struct {
	addr      string
	sessions  *session.Manager
	formatter *formatter.Formatter
	maxShown  int
	logLevel  slog.Level
	logger    *slog.Logger
}

// New creates a server. Zero durations fall back to sensible defaults.
func New(opts Options) *Server {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	var sessionOpts []session.Option
	if opts.Transformer != nil {
		sessionOpts = append(sessionOpts, session.WithTransformer(opts.Transformer))
	}

	return &Server{
		addr:      opts.Addr,
		sessions:  session.NewManager(opts.MaxAge, opts.IdleTimeout, sessionOpts...),
		formatter: formatter.NewPlainFormatter(),
		maxShown:  opts.MaxErrorsShown,
		logLevel:  requestLogLevel(opts.LogRequests),
		logger:    opts.Logger,
	}
}

// Sessions returns the session store
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/fields", s.handleAddField)
			r.Patch("/fields/{path}", s.handleUpdateField)
			r.Delete("/fields/{path}", s.handleRemoveField)
			r.Get("/preview", s.handlePreview)
			r.Post("/finalize", s.handleFinalize)
			r.Get("/ws", s.handleWebSocket)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Log(r.Context(), s.logLevel, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func requestLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// Run serves until ctx is cancelled, then shuts down gracefully. Expired
// sessions are swept in the background.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "failed to serve", goerr.V("addr", s.addr))
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down")
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Cleanup(); n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
