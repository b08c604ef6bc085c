package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/growlogin/growlogin/internal/metrics"
	"github.com/growlogin/growlogin/internal/observability"
	"github.com/growlogin/growlogin/internal/response"
)

const (
	headerNoCompression = "X-No-Compression"
	msgTooManyRequests  = "Too many requests, please try again later."
)

// useMiddleware installs the cross-cutting layers in request order:
// request id, access log, panic recovery, APM, hardening headers,
// compression, body limit, rate limiting, CORS.
func (s *Server) useMiddleware() {
	e := s.Echo
	cfg := s.Config

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error().Err(err).Bytes("stack", stack).Str("path", c.Request().URL.Path).Msg("panic recovered")
			return err
		},
	}))
	e.Use(observability.Middleware(s.nrApp))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     cfg.Compression.Level,
		MinLength: cfg.Compression.MinLength,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(headerNoCompression) != ""
		},
	}))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if s.limiter != nil {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return cfg.Observability.Metrics.Enabled && c.Path() == cfg.Observability.Metrics.Path
			},
			Store: s.limiter,
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				metrics.RateLimited.Inc()
				s.log.Info().Str("client", identifier).Msg("rate limited")
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(cfg.RateLimit.Window.Seconds())))
				return response.Error(c, http.StatusTooManyRequests, msgTooManyRequests)
			},
		}))
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			"X-Requested-With",
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
}

// requestLogger writes one zerolog event per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogRemoteIP:  true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.log.Info()
			if v.Error != nil {
				ev = s.log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("ip", v.RemoteIP).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
