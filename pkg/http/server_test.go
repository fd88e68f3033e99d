package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"CycleScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/limited", func(c echo.Context) error { return AppErrorResponse(c, TooManyRequestsError("slow down")) })
	e.GET("/boom", func(c echo.Context) error { return AppErrorResponse(c, errors.New("unexpected")) })
	e.GET("/panic", func(c echo.Context) error { panic("handler exploded") })
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRoutesAndEnvelope(t *testing.T) {
	s := NewServer(pingHandler{}, logger.NewNop(), WithMetrics("/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})))

	rec := serve(s, "/ping")
	var body APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || body.Status != http.StatusOK || body.Data != "pong" {
		t.Fatalf("ping: %d %+v", rec.Code, body)
	}

	if rec := serve(s, "/limited"); rec.Code != http.StatusTooManyRequests || !strings.Contains(rec.Body.String(), "ERR_RATE_LIMITED") {
		t.Fatalf("limited: %d %s", rec.Code, rec.Body.String())
	}
	if rec := serve(s, "/boom"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("plain errors should map to 500, got %d", rec.Code)
	}
	if rec := serve(s, "/panic"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic should be recovered as 500, got %d", rec.Code)
	}
	if rec := serve(s, "/metrics"); rec.Body.String() != "metrics" {
		t.Fatalf("metrics handler not mounted: %q", rec.Body.String())
	}
}

func TestServerCORS(t *testing.T) {
	s := NewServer(pingHandler{}, logger.NewNop(), WithCORS("https://dash.example"))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://dash.example" {
		t.Fatalf("allow origin = %q", got)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowMethods) == "" {
		t.Fatal("preflight without allowed methods")
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://elsewhere.example")
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin: %d %q", rec.Code, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}
}
