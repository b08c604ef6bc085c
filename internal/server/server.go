package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/growlogin/growlogin/internal/config"
	"github.com/growlogin/growlogin/internal/handler"
	"github.com/growlogin/growlogin/internal/infrastructure/shapes"
	_ "github.com/growlogin/growlogin/internal/infrastructure/shapes/jsonwrapped"
	_ "github.com/growlogin/growlogin/internal/infrastructure/shapes/rawtext"
	"github.com/growlogin/growlogin/internal/observability"
	"github.com/growlogin/growlogin/internal/ratelimit"
	"github.com/growlogin/growlogin/internal/view"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo    *echo.Echo
	Config  *config.Config
	log     zerolog.Logger
	limiter ratelimit.Store       // nil when rate limiting is disabled
	nrApp   *newrelic.Application // nil without a licence key
}

// New builds the Echo server, its middleware chain and routes.
func New(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)
	if cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	renderer, err := view.New()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	nrApp, err := observability.NewApplication(cfg.Observability)
	if err != nil {
		log.Warn().Err(err).Msg("new relic disabled")
		nrApp = nil
	}

	var limiter ratelimit.Store
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(cfg.RateLimit, log)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	s := &Server{Echo: e, Config: cfg, log: log, limiter: limiter, nrApp: nrApp}
	s.useMiddleware()
	s.registerRoutes()

	log.Info().
		Interface("shapes", shapes.GlobalRegistry.ListRegistered()).
		Str("ratelimit_backend", cfg.RateLimit.Backend).
		Bool("ratelimit_enabled", cfg.RateLimit.Enabled).
		Bool("new_relic", nrApp != nil).
		Msg("server configured")
	return s, nil
}

func (s *Server) registerRoutes() {
	e := s.Echo
	login := handler.NewLoginHandler(shapes.GlobalRegistry, s.log, s.Config.Login.ValidateTimeout)
	passthrough := handler.NewPassthroughHandler(s.Config.Login.UpstreamBase)

	e.GET("/", handler.Home)

	// Player login flow
	e.Any(handler.DashboardPath, login.Dashboard)
	e.POST(handler.ValidatePath, login.Validate)
	e.Match(nonPostMethods, handler.ValidatePath, passthrough.Redirect)
	e.Any(handler.PlayerPrefix+"/*", passthrough.Redirect)

	if s.Config.Observability.Metrics.Enabled {
		e.GET(s.Config.Observability.Metrics.Path, echo.WrapHandler(promhttp.Handler()))
	}

	e.RouteNotFound("/*", handler.RouteNotFound)
}

var nonPostMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// Start listens on the configured port. It blocks until the server stops;
// after Shutdown it returns http.ErrServerClosed.
func (s *Server) Start() error {
	srv := s.Echo.Server
	srv.ReadTimeout = s.Config.Server.ReadTimeout
	srv.WriteTimeout = s.Config.Server.WriteTimeout
	srv.IdleTimeout = s.Config.Server.IdleTimeout

	s.log.Info().Str("port", s.Config.Server.Port).Msg("server running")
	err := s.Echo.Start(":" + s.Config.Server.Port)
	if errors.Is(err, syscall.EADDRINUSE) {
		s.log.Error().Err(err).Str("port", s.Config.Server.Port).Msg("port is already in use")
	}
	return err
}

// Shutdown stops accepting connections, drains in-flight requests and
// releases the rate limiter and APM agent.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if s.limiter != nil {
		if cerr := s.limiter.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("close rate limiter")
		}
	}
	observability.Shutdown(s.nrApp, 5*time.Second)
	return err
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
// gracefully. A listener failure is returned; a clean stop returns nil.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
