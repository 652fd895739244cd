package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	var seen string
	app.Get("/test", func(c fiber.Ctx) error {
		seen = GetRequestID(c)
		return c.SendString("OK")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, resp.Header.Get(RequestIDHeader))

	req := httptest.NewRequest(fiber.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Recovery())

	app.Get("/panic", func(c fiber.Ctx) error {
		panic("secret internal detail")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := make([]byte, 512)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "internal_server_error")
	assert.NotContains(t, string(body[:n]), "secret internal detail")
}

func TestLogging_HandlesErrors(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logging(LoggingConfig{SkipPaths: []string{"/health"}}))

	app.Get("/health", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c fiber.Ctx) error { return fiber.ErrNotFound })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedOrigins: []string{"https://app.example.com", "*.trusted.io"}}))
	app.Post("/v1/generate", func(c fiber.Ctx) error { return c.SendString("ok") })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"no origin", fiber.MethodPost, "", fiber.StatusOK, ""},
		{"exact origin", fiber.MethodPost, "https://app.example.com", fiber.StatusOK, "https://app.example.com"},
		{"wildcard subdomain", fiber.MethodPost, "https://ui.trusted.io", fiber.StatusOK, "https://ui.trusted.io"},
		{"rejected origin", fiber.MethodPost, "https://evil.com", fiber.StatusForbidden, ""},
		{"preflight", fiber.MethodOptions, "https://app.example.com", fiber.StatusNoContent, "https://app.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/generate", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			if tt.method == fiber.MethodOptions {
				assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
			}
		})
	}
}
