package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		local, _ := c.Locals(RequestIDLocalKey).(string)
		if local != RequestIDFromContext(c.UserContext()) {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(local)
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when absent", incoming: "", keep: false},
		{name: "existing id preserved", incoming: "quote-42-abc", keep: true},
		{name: "line break replaced", incoming: "evil\nid", keep: false},
		{name: "oversized replaced", incoming: strings.Repeat("x", maxRequestIDLen+1), keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.incoming != "" {
				req.Header[RequestIDHeader] = []string{tt.incoming}
			}
			resp, _ := app.Test(req)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			rid := resp.Header.Get(RequestIDHeader)
			buf := new(bytes.Buffer)
			buf.ReadFrom(resp.Body)
			assert.Equal(t, rid, buf.String())
			if tt.keep {
				assert.Equal(t, tt.incoming, rid)
			} else {
				_, err := uuid.Parse(rid)
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoStore(t *testing.T) {
	app := fiber.New()
	app.Use(NoStore())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderPragma))

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	assert.Equal(t, "ok", buf.String())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	loc := time.UTC

	// Logger usually depends on RequestID for request_id field
	app.Use(RequestID())
	app.Use(LoggerWithWriter(&buf, loc))

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	// Verify log output
	var logData map[string]any
	err := json.Unmarshal(buf.Bytes(), &logData)
	assert.NoError(t, err)

	assert.NotEmpty(t, logData["request_id"])
	assert.Equal(t, "GET", logData["method"])
	assert.Equal(t, "/test", logData["path"])
	assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
	assert.NotNil(t, logData["latency"])
	assert.NotEmpty(t, logData["ts"])
}

func TestLogger_FiberErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, nil))

	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	req := httptest.NewRequest("GET", "/missing", nil)
	app.Test(req)

	var logData map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
	assert.Equal(t, float64(fiber.StatusNotFound), logData["status"])
	assert.Equal(t, "", logData["request_id"])
}
