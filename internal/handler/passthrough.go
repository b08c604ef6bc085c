package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/growlogin/growlogin/internal/metrics"
)

// PassthroughHandler sends any other /player request to the upstream
// player API with a permanent redirect.
type PassthroughHandler struct {
	Prefix       string
	UpstreamBase string
}

// NewPassthroughHandler redirects PlayerPrefix paths to upstreamBase.
func NewPassthroughHandler(upstreamBase string) *PassthroughHandler {
	return &PassthroughHandler{
		Prefix:       PlayerPrefix,
		UpstreamBase: strings.TrimSuffix(upstreamBase, "/"),
	}
}

// Target strips Prefix once from path and appends the rest to UpstreamBase.
// The remainder is not validated.
func (p *PassthroughHandler) Target(path string) string {
	return p.UpstreamBase + strings.TrimPrefix(path, p.Prefix)
}

// Redirect handles ANY /player/*. The query string is not forwarded.
func (p *PassthroughHandler) Redirect(c echo.Context) error {
	metrics.PassthroughRedirects.Inc()
	return c.Redirect(http.StatusMovedPermanently, p.Target(c.Request().URL.EscapedPath()))
}
