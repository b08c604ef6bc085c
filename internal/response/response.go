package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/growlogin/growlogin/internal/model"
)

// Status values carried in every JSON body.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the standard response shape for both success and error.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ValidatedResponse is returned once credentials pass validation.
type ValidatedResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Token       string `json:"token"`
	URL         string `json:"url"`
	AccountType string `json:"accountType"`
}

// OK sends a 200 success response with message.
func OK(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, APIResponse{Status: StatusSuccess, Message: message})
}

// Validated sends the 200 response carrying a session token.
func Validated(c echo.Context, token string) error {
	return c.JSON(http.StatusOK, ValidatedResponse{
		Status:      StatusSuccess,
		Message:     "Account Validated.",
		Token:       token,
		URL:         "",
		AccountType: model.AccountType,
	})
}

// Error sends a JSON error response with the given status code.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, APIResponse{Status: StatusError, Message: message})
}

// BadRequest sends 400 with message.
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// NotFound sends the 404 route-not-found response.
func NotFound(c echo.Context) error {
	return Error(c, http.StatusNotFound, "Route not found")
}

// InternalError sends 500 with message. Callers pass a generic message; details belong in logs.
func InternalError(c echo.Context, message string) error {
	return Error(c, http.StatusInternalServerError, message)
}
