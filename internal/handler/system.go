package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/growlogin/growlogin/internal/response"
)

// Home reports that the server is up (GET /).
func Home(c echo.Context) error {
	return response.OK(c, "Server is running")
}

// RouteNotFound answers every unmatched route.
func RouteNotFound(c echo.Context) error {
	return response.NotFound(c)
}
