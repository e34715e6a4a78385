// ABOUTME: Portal server that wires auth, gate, store, throttle, and metrics together
// ABOUTME: Manages the HTTP server lifecycle, listeners, and graceful shutdown

package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/studio-portal/internal/auth"
	"github.com/2389/studio-portal/internal/config"
	"github.com/2389/studio-portal/internal/gate"
	"github.com/2389/studio-portal/internal/metrics"
	"github.com/2389/studio-portal/internal/store"
	"github.com/2389/studio-portal/internal/throttle"
)

// MinPasswordLength is the shortest password accepted at registration or change.
const MinPasswordLength = 6

// Deps are the collaborators a Server needs. Zero fields get defaults:
// Limiter becomes throttle.Nop, Metrics a fresh registry, Now time.Now.
type Deps struct {
	Store   store.Store
	Limiter throttle.Limiter
	Metrics *metrics.Metrics
	Now     func() time.Time

	// closers are released on Shutdown after the store.
	closers []io.Closer
}

// Server is the studio portal: the HTTP API, pages, and the route gate.
type Server struct {
	config      *config.Config
	store       store.Store
	limiter     throttle.Limiter
	metrics     *metrics.Metrics
	codec       *auth.Codec
	hasher      *auth.Hasher
	cookies     auth.CookiePolicy
	sessions    *auth.Resolver
	guard       *auth.Guard
	gate        *gate.Gate
	pages       *pageSet
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	closers     []io.Closer
	now         func() time.Time
	logger      *slog.Logger
}

// Open creates the store and login throttle described by cfg and returns a
// ready Server.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	limiter, closer, err := openLimiter(ctx, cfg.Throttle, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	deps := Deps{Store: st, Limiter: limiter}
	if closer != nil {
		deps.closers = append(deps.closers, closer)
	}

	s, err := New(cfg, deps, logger)
	if err != nil {
		_ = st.Close()
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	return s, nil
}

// openLimiter picks the throttle backend. The returned closer may be nil.
func openLimiter(ctx context.Context, cfg config.ThrottleConfig, logger *slog.Logger) (throttle.Limiter, io.Closer, error) {
	if !cfg.Enabled {
		logger.Warn("login throttling disabled")
		return throttle.Nop{}, nil, nil
	}

	tcfg := throttle.Config{MaxAttempts: cfg.MaxLoginAttempts, Cooldown: cfg.Cooldown}
	if cfg.RedisAddr != "" {
		l, err := throttle.DialRedis(ctx, cfg.RedisAddr, tcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting login throttle: %w", err)
		}
		logger.Info("login throttle using redis", "addr", cfg.RedisAddr)
		return l, l, nil
	}

	l := throttle.NewMemory(tcfg)
	logger.Info("login throttle using process memory")
	return l, l, nil
}

// New creates a Server over existing collaborators. deps.Store is required.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("portal: store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Limiter == nil {
		deps.Limiter = throttle.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	codec, err := auth.NewCodec([]byte(cfg.Auth.JWTSecret),
		auth.WithClock(deps.Now),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	pages, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}

	sessions := auth.NewResolver(codec)
	cookies := auth.CookiePolicy{Secure: cfg.Auth.SecureCookies}

	s := &Server{
		config:   cfg,
		store:    deps.Store,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		codec:    codec,
		hasher:   auth.NewHasher(cfg.Auth.HashWorkers),
		cookies:  cookies,
		sessions: sessions,
		guard:    auth.NewGuard(sessions),
		gate: gate.New(sessions, cookies,
			gate.WithRecorder(deps.Metrics),
			gate.WithLogger(logger),
		),
		pages:   pages,
		closers: deps.closers,
		now:     deps.Now,
		logger:  logger.With("component", "portal"),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = s.metrics.Instrument(s.gate.Middleware(mux))

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	s.logger.Info("starting portal", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// startServer serves HTTP in a goroutine, returning its error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts serving and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases every collaborator.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down portal")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", s.store.Close())
	for _, c := range s.closers {
		errs = appendCloseError(errs, "throttle close", c.Close())
	}

	return errors.Join(errs...)
}
