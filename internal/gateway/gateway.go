// Package gateway exposes health, metrics, status, and manual sync dispatch
// over HTTP. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/notionsync/internal/runner"
	"github.com/flemzord/notionsync/internal/security"
	"github.com/flemzord/notionsync/internal/synclog"
)

// Runner is the part of runner.Runner the gateway drives.
type Runner interface {
	Run(ctx context.Context, trigger runner.Trigger) (*runner.Result, error)
	Last() *runner.Result
}

// LogLister lists the sync logs on disk.
type LogLister interface {
	List() ([]synclog.Entry, error)
}

// Deps are the collaborators of a Gateway. Runner is required.
type Deps struct {
	Runner Runner
	Logs   LogLister

	// NextRun reports the next scheduled sync, if any.
	NextRun func() (time.Time, bool)

	// Gatherer backs GET /metrics; Registerer receives the HTTP
	// collectors. Both default to the Prometheus default registry.
	Gatherer   prometheus.Gatherer
	Registerer prometheus.Registerer

	Logger *slog.Logger
}

// Gateway is the HTTP server component.
type Gateway struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	metrics   *httpMetrics
	limiter   *security.RateLimiter
	startedAt time.Time

	// inflight tracks runs started by the webhook.
	inflight sync.WaitGroup

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a Gateway.
func New(cfg Config, deps Deps) *Gateway {
	cfg.defaults()
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:  cfg,
		deps:    deps,
		logger:  logger,
		metrics: newHTTPMetrics(deps.Registerer),
		limiter: security.NewRateLimiter(cfg.RunsPerHour, time.Hour),
	}
}

// Name implements core.Component.
func (g *Gateway) Name() string { return "gateway" }

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if g.deps.Runner == nil {
		return errors.New("gateway: runner is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return nil
}

// Handler returns the routed handler without starting a server.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start implements core.Starter. It listens synchronously so bind errors
// surface here, then serves in the background.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	srv := &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	g.mu.Lock()
	g.server = srv
	g.addr = ln.Addr()
	g.mu.Unlock()

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway: no auth configured, /status and /api are not mounted")
	}

	go func() {
		g.logger.Info("gateway: listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway: shutting down")
	err := srv.Shutdown(shutdownCtx)

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		g.logger.Warn("gateway: webhook run still in progress at shutdown")
	}
	return err
}
