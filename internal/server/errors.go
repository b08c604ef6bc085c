package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/growlogin/growlogin/internal/response"
)

// errorHandler turns errors escaping handlers into the JSON envelope.
// Server-side details are logged, never returned.
func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		var werr error
		switch {
		case code == http.StatusNotFound, code == http.StatusMethodNotAllowed:
			werr = response.NotFound(c)
		case code == http.StatusRequestEntityTooLarge:
			werr = response.Error(c, code, "Request entity too large")
		case code >= 400 && code < 500:
			werr = response.Error(c, code, http.StatusText(code))
		default:
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
			werr = response.InternalError(c, "Internal server error")
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}
