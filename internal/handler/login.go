package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/growlogin/growlogin/internal/credential"
	"github.com/growlogin/growlogin/internal/infrastructure/shapes"
	"github.com/growlogin/growlogin/internal/metrics"
	"github.com/growlogin/growlogin/internal/model"
	"github.com/growlogin/growlogin/internal/response"
	"github.com/growlogin/growlogin/internal/token"
	"github.com/growlogin/growlogin/internal/view"
)

// Player login routes.
const (
	PlayerPrefix  = "/player"
	DashboardPath = PlayerPrefix + "/login/dashboard"
	ValidatePath  = PlayerPrefix + "/growid/login/validate"
)

// Client-facing messages.
const (
	msgInvalidFormat   = "Invalid request format"
	msgRequired        = "Username and password are required"
	msgInvalidLength   = "Invalid username or password length"
	msgTimeout         = "Request timeout"
	msgValidationError = "An error occurred during validation"
)

// DefaultValidateTimeout bounds Validate when no timeout is configured.
const DefaultValidateTimeout = 10 * time.Second

// LoginHandler serves the dashboard and validate routes. It keeps no
// per-request state, so one instance serves all requests.
type LoginHandler struct {
	Shapes          *shapes.Registry
	Validator       *validator.Validate
	Log             zerolog.Logger
	ValidateTimeout time.Duration
	// Encode builds the session token; token.Encode when nil.
	Encode func(passthrough, identifier, secret string) string
}

// NewLoginHandler returns a LoginHandler using reg to detect body shapes.
func NewLoginHandler(reg *shapes.Registry, log zerolog.Logger, timeout time.Duration) *LoginHandler {
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return &LoginHandler{
		Shapes:          reg,
		Validator:       validator.New(),
		Log:             log,
		ValidateTimeout: timeout,
		Encode:          token.Encode,
	}
}

// Dashboard parses the client's key|value login payload. With both username
// and password present it redirects to validation; otherwise it renders the
// login form with whatever fields were parsed (ANY /player/login/dashboard).
func (h *LoginHandler) Dashboard(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		h.Log.Warn().Err(err).Msg("dashboard: read body")
		body = nil
	}

	mapping, err := h.parse(c.Request().Header.Get(echo.HeaderContentType), body)
	if errors.Is(err, shapes.ErrMalformedWrapper) {
		h.Log.Info().Err(err).Msg("dashboard: malformed body")
		metrics.DashboardRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return response.BadRequest(c, msgInvalidFormat)
	}
	if err != nil {
		h.Log.Warn().Err(err).Msg("dashboard: parse failed, rendering empty form")
		mapping = credential.Mapping{}
	}

	if mapping.HasLogin() {
		metrics.DashboardRequests.WithLabelValues(metrics.OutcomeRedirect).Inc()
		return c.Redirect(http.StatusFound, ValidatePath)
	}

	metrics.DashboardRequests.WithLabelValues(metrics.OutcomeRender).Inc()
	return c.Render(http.StatusOK, view.Dashboard, mapping)
}

// parse never panics; a panic while decoding becomes an error.
func (h *LoginHandler) parse(contentType string, body []byte) (m credential.Mapping, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("parse panic: %v", r)
		}
	}()

	shape, text, err := h.Shapes.Extract(contentType, body)
	if err != nil {
		return nil, err
	}
	m, dropped := credential.Parse(text)
	if dropped > 0 {
		metrics.DroppedRecords.Add(float64(dropped))
		h.Log.Debug().Str("shape", string(shape)).Int("dropped", dropped).Msg("dashboard: skipped malformed records")
	}
	return m, nil
}

type validation struct {
	status  int
	message string
	token   string
	err     error
}

// Validate checks the submitted GrowID credentials and returns a session
// token (POST /player/growid/login/validate). The whole handler is bounded
// by ValidateTimeout; on expiry the client gets 408 and the computation is
// left to finish on its own.
func (h *LoginHandler) Validate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.ValidateTimeout)
	defer cancel()

	// Bodies of an unknown media type bind nothing and fail as missing fields.
	var creds model.Credentials
	if err := c.Bind(&creds); err != nil && !errors.Is(err, echo.ErrUnsupportedMediaType) {
		h.Log.Info().Err(err).Msg("validate: bind body")
		metrics.ValidateRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		return response.BadRequest(c, msgInvalidFormat)
	}
	if ctx.Err() != nil {
		return h.timedOut(c, ctx.Err())
	}

	// Buffered so the worker never blocks after a timeout.
	done := make(chan validation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- validation{err: fmt.Errorf("validate panic: %v", r)}
			}
		}()
		done <- h.validate(creds)
	}()

	select {
	case res := <-done:
		return h.writeValidation(c, res)
	case <-ctx.Done():
		return h.timedOut(c, ctx.Err())
	}
}

func (h *LoginHandler) timedOut(c echo.Context, err error) error {
	h.Log.Warn().Err(err).Msg("validate: timed out")
	metrics.ValidateRequests.WithLabelValues(metrics.OutcomeTimeout).Inc()
	return response.Error(c, http.StatusRequestTimeout, msgTimeout)
}

func (h *LoginHandler) validate(creds model.Credentials) validation {
	if err := h.Validator.Struct(creds); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return validation{err: err}
		}
		msg := msgInvalidLength
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				msg = msgRequired
				break
			}
		}
		return validation{status: http.StatusBadRequest, message: msg}
	}

	encode := h.Encode
	if encode == nil {
		encode = token.Encode
	}
	return validation{status: http.StatusOK, token: encode(creds.Token, creds.GrowID, creds.Password)}
}

func (h *LoginHandler) writeValidation(c echo.Context, res validation) error {
	switch {
	case res.err != nil:
		h.Log.Error().Err(res.err).Msg("validate: internal error")
		metrics.ValidateRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return response.InternalError(c, msgValidationError)
	case res.status == http.StatusOK:
		metrics.ValidateRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
		return response.Validated(c, res.token)
	default:
		metrics.ValidateRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		return response.Error(c, res.status, res.message)
	}
}
