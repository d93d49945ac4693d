package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scanner_server/pkg/apperr"
	"scanner_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(),
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(Recover())
	app.Use(RequestID())
	return app
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp()
	app.Get("/app", func(c *fiber.Ctx) error {
		return apperr.FeatureMismatch([]string{"count_@"}, nil, nil)
	})
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return errors.Join(errors.New("ctx"), apperr.ArtifactLoadFailed("m.json", errors.New("boom")))
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/app", 422, apperr.CodeFeatureMismatch},
		{"/wrapped", 503, apperr.CodeArtifactLoadFailed},
		{"/fiber", 404, apperr.CodeNotFound},
		{"/plain", 500, apperr.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("X-Request-ID", "req-1")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeError(t, resp.Body)
			if body.Success {
				t.Error("success should be false")
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if body.RequestID != "req-1" {
				t.Errorf("request_id = %q, want req-1", body.RequestID)
			}
		})
	}
}

func TestRequestIDGenerated(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestRecover(t *testing.T) {
	app := newTestApp()
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if body := decodeError(t, resp.Body); body.Error.Code != apperr.CodeInternalError {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewFixedWindowLimiter(2, time.Minute)
	defer limiter.Close()

	app := newTestApp()
	app.Use(RateLimit(limiter))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != 204 {
			t.Fatalf("request %d: status = %d", i, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q", resp.Header.Get("X-RateLimit-Limit"))
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 429 {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
	if body := decodeError(t, resp.Body); body.Error.Code != apperr.CodeRateLimited {
		t.Errorf("code = %q", body.Error.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	app := newTestApp()
	app.Use(SecurityHeaders(), RequireJSON())
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"json", "application/json; charset=utf-8", `{"url":"x"}`, 204},
		{"empty body", "", "", 204},
		{"form", "application/x-www-form-urlencoded", "url=x", 415},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}
