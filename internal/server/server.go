package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/idelchi/jolt/internal/config"
	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/sysinfo"
)

// Inspector provides the host information served by the info routes.
type Inspector interface {
	CPUs(ctx context.Context) ([]sysinfo.CPU, error)
	Memory(ctx context.Context) (*sysinfo.Memory, error)
	Diagnose(ctx context.Context) (*sysinfo.Snapshot, error)
}

// ScanFunc runs a largest-file scan.
type ScanFunc func(ctx context.Context, opt finder.Options, progress func(files, bytes int64)) (*finder.Result, error)

// Server represents the HTTP server.
type Server struct {
	cfg         config.ServerConfig
	finder      config.FinderConfig
	search      config.SearchConfig
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	inspector   Inspector
	scan        ScanFunc
	version     string
	mu          sync.RWMutex
	ready       bool
}

// Option customises a Server.
type Option func(*Server)

// WithInspector replaces the gopsutil-backed host inspector.
func WithInspector(i Inspector) Option {
	return func(s *Server) {
		s.inspector = i
	}
}

// WithScanner replaces finder.Scan.
func WithScanner(fn ScanFunc) Option {
	return func(s *Server) {
		s.scan = fn
	}
}

// WithVersion sets the version reported by the greeting route.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a server from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:         cfg.Server,
		finder:      cfg.Finder,
		search:      cfg.Search,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateLimitBurst),
		inspector:   sysinfo.Collector{},
		scan:        finder.Scan,
		version:     "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port)),
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = ready
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ready
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.SetReady(true)

	slog.Info("listening", "address", ln.Addr().String())

	errChan := make(chan error, 1)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.WithoutCancel(ctx))
	case err := <-errChan:
		s.SetReady(false)

		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down server")

	return s.httpServer.Shutdown(shutdownCtx)
}

// Run starts the server and stops it on SIGINT or SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("server config",
		slog.String("address", s.httpServer.Addr),
		slog.Float64("rateLimit", s.cfg.RateLimit),
		slog.Int("rateLimitBurst", s.cfg.RateLimitBurst),
		slog.Duration("readTimeout", s.cfg.ReadTimeout),
		slog.Duration("writeTimeout", s.cfg.WriteTimeout),
		slog.Duration("idleTimeout", s.cfg.IdleTimeout),
		slog.Duration("shutdownTimeout", s.cfg.ShutdownTimeout),
		slog.Duration("progressInterval", s.cfg.ProgressInterval),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped gracefully")

	return nil
}
