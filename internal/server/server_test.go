package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growlogin/growlogin/internal/config"
	"github.com/growlogin/growlogin/internal/response"
	"github.com/growlogin/growlogin/internal/token"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Login.UpstreamBase = "https://upstream.example/player"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func apiBody(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var out response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Home(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.APIResponse{Status: "success", Message: "Server is running"}, apiBody(t, rec))
}

func TestServer_SecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, target := range []string{"/", "/missing", "/player/login/dashboard"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), target)
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"), target)
		assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"), target)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID), target)
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/api/v1/anything"},
		{http.MethodGet, "/player"},
		{http.MethodPost, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, response.APIResponse{Status: "error", Message: "Route not found"}, apiBody(t, rec))
		})
	}
}

func TestServer_LoginFlow(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/player/login/dashboard",
		strings.NewReader("tankIDName|Player\nusername|Player\npassword|hunter22\n"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := serve(s, req)
	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get(echo.HeaderLocation)
	assert.Equal(t, "/player/growid/login/validate", location)

	req = httptest.NewRequest(http.MethodPost, location,
		strings.NewReader(`{"_token":"abc","growId":"Player","password":"hunter22"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got response.ValidatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, token.Encode("abc", "Player", "hunter22"), got.Token)
	assert.Equal(t, "growtopia", got.AccountType)
}

func TestServer_DashboardRendersForm(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/player/login/dashboard", strings.NewReader("tankIDName|Player\n"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := serve(s, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), `value="Player"`)
}

func TestServer_DashboardMalformedJSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/player/login/dashboard", strings.NewReader(`{"data":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.APIResponse{Status: "error", Message: "Invalid request format"}, apiBody(t, rec))
}

func TestServer_Passthrough(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodGet, "/player/foo/bar", "https://upstream.example/player/foo/bar"},
		{http.MethodPost, "/player/growid/checktoken?valKey=1", "https://upstream.example/player/growid/checktoken"},
		{http.MethodGet, "/player/growid/login/validate", "https://upstream.example/player/growid/login/validate"},
		{http.MethodPut, "/player/growid/login/validate", "https://upstream.example/player/growid/login/validate"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, http.StatusMovedPermanently, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.Window = time.Hour
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Equal(t, response.APIResponse{Status: "error", Message: "Too many requests, please try again later."}, apiBody(t, rec))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "metrics are not rate limited")
}

func TestServer_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Requests = 1
	s := newTestServer(t, cfg)

	for i := 0; i < 5; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestServer_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RateLimit.Backend = "redis"
	cfg.RateLimit.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimit.Requests = 1
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNew_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.RateLimit.Backend = "redis"
	cfg.RateLimit.RedisURL = "redis://" + addr
	_, err := New(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://game.example")
	rec := serve(s, req)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodOptions, "/player/growid/login/validate", nil)
	req.Header.Set(echo.HeaderOrigin, "https://game.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = serve(s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Empty(t, rec.Header().Get(echo.HeaderLocation), "preflight does not reach the passthrough")
}

func TestServer_Compression(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
	rec := serve(s, req)
	assert.Equal(t, "gzip", rec.Header().Get(echo.HeaderContentEncoding))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
	req.Header.Set("X-No-Compression", "1")
	rec = serve(s, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentEncoding))
	assert.Equal(t, response.APIResponse{Status: "success", Message: "Server is running"}, apiBody(t, rec))
}

func TestServer_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BodyLimit = "1K"
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/player/login/dashboard", strings.NewReader(strings.Repeat("a|b\n", 1024)))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := serve(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, response.APIResponse{Status: "error", Message: "Request entity too large"}, apiBody(t, rec))
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/player/login/dashboard", strings.NewReader("broken\nusername|bob"))
	serve(s, req)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "growlogin_dashboard_requests_total")
	assert.Contains(t, rec.Body.String(), "growlogin_dashboard_dropped_records_total")
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.Metrics.Enabled = false
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_PanicIsInternalError(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.Echo.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, response.APIResponse{Status: "error", Message: "Internal server error"}, apiBody(t, rec))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"
	s, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Echo.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Echo.ListenerAddr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunFailsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	cfg.Server.Port = port
	s, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	err = s.Run(context.Background())
	assert.Error(t, err)
}
