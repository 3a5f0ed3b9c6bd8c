package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"jokeledger/core"
	"jokeledger/gateway/middleware"
	"jokeledger/storage/journal"
)

const (
	defaultMaxBodyBytes      = 1 << 20 // 1 MiB
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
	defaultAdminScope        = "admin"
	headerCaller             = "X-Caller"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress     string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	MaxBodyBytes      int64
	AdminScope        string
	CORS              middleware.CORSConfig
	// AllowInsecure lets Serve accept a non-loopback listener while
	// authentication is disabled.
	AllowInsecure bool
}

// EventLog serves committed events for polling clients.
type EventLog interface {
	List(ctx context.Context, after uint64, limit int) ([]journal.Entry, error)
}

// Options carries the optional collaborators of the server.
type Options struct {
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Events        EventLog
	Logger        *slog.Logger
}

// Server exposes the joke ledger over HTTP.
type Server struct {
	cfg    Config
	ledger *core.Ledger
	auth   *middleware.Authenticator
	limits *middleware.RateLimiter
	obs    *middleware.Observability
	events EventLog
	logger *slog.Logger
}

// New constructs a server over ledger.
func New(cfg Config, ledger *core.Ledger, opts Options) (*Server, error) {
	if ledger == nil {
		return nil, fmt.Errorf("rpc: ledger required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.AdminScope) == "" {
		cfg.AdminScope = defaultAdminScope
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := opts.Authenticator
	if auth == nil {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{}, logger)
	}
	obs := opts.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}
	return &Server{
		cfg:    cfg,
		ledger: ledger,
		auth:   auth,
		limits: opts.RateLimiter,
		obs:    obs,
		events: opts.Events,
		logger: logger,
	}, nil
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(s.cfg.CORS))
	r.Use(s.limitBody)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.obs.MetricsHandler())

	r.Route("/v1", func(v1 chi.Router) {
		// The stream bypasses the response recorder so the upgrade can hijack
		// the connection.
		v1.With(s.rateLimit("stream")).Get("/events/stream", s.handleEventStream)

		v1.Group(func(read chi.Router) {
			read.Use(s.rateLimit("read"), s.obs.Middleware("query"))
			read.Get("/pending", s.handlePendingList)
			read.Get("/pending/{id}", s.handlePendingGet)
			read.Get("/jokes", s.handleJokeList)
			read.Get("/jokes/{id}", s.handleJokeGet)
			read.Get("/jokes/{id}/owner", s.handleOwnerOf)
			read.Get("/jokes/{id}/voters", s.handleVoters)
			read.Get("/jokes/{id}/voters/{identity}", s.handleHasVoted)
			read.Get("/accounts/{identity}", s.handleAccount)
			read.Get("/stats", s.handleStats)
			read.Get("/events", s.handleEvents)
		})

		v1.Group(func(write chi.Router) {
			write.Use(s.rateLimit("write"), s.obs.Middleware("jokes"), s.auth.Middleware())
			write.Post("/pending", s.handleSubmit)
			write.Post("/pending/{id}/votes", s.handleVotePending)
			write.Post("/pending/{id}/finalize", s.handleFinalize)
			write.Post("/jokes/{id}/votes", s.handleVoteApproved)
			write.Post("/jokes/{id}/listing", s.handleListForSale)
			write.Post("/jokes/{id}/purchase", s.handleBuy)
			write.Post("/jokes/{id}/use", s.handleUse)
			write.Post("/fusions", s.handleFuse)
			write.Post("/exchanges", s.handleExchange)
		})

		v1.Group(func(admin chi.Router) {
			admin.Use(s.obs.Middleware("admin"), s.auth.Middleware(s.cfg.AdminScope))
			admin.Post("/admin/credit", s.handleCredit)
			admin.Post("/admin/pause", s.handlePause)
			admin.Get("/admin/pause", s.handlePauseStatus)
		})
	})
	return r
}

func (s *Server) rateLimit(key string) func(http.Handler) http.Handler {
	if s.limits == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.limits.Middleware(key)
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", s.cfg.ListenAddress, err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles connections from listener until ctx is cancelled, then
// drains in-flight requests. Without authentication only loopback listeners
// are accepted unless AllowInsecure is set.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if !s.auth.Enabled() && !s.cfg.AllowInsecure && !middleware.IsLoopback(listener.Addr().String()) {
		return fmt.Errorf("rpc: authentication is required to serve on %s; set AllowInsecure for development", listener.Addr())
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("rpc: shutdown incomplete", "error", err)
		}
	}()

	s.logger.Info("rpc: http server listening", "addr", listener.Addr().String())
	err := srv.Serve(listener)
	cancel()
	<-done
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rpc: serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.ledger.Paused() {
		status = "paused"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
