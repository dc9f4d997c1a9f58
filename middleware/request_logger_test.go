package middleware_test

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet/middleware"
)

type logLine struct {
	msg   string
	attrs map[string]any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *recordingLogger) record(msg string, keysAndValues ...any) {
	attrs := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			attrs[key] = keysAndValues[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{msg: msg, attrs: attrs})
}

func (l *recordingLogger) Debug(msg string, keysAndValues ...any) { l.record(msg, keysAndValues...) }
func (l *recordingLogger) Info(msg string, keysAndValues ...any)  { l.record(msg, keysAndValues...) }
func (l *recordingLogger) Warn(msg string, keysAndValues ...any)  { l.record(msg, keysAndValues...) }
func (l *recordingLogger) Error(msg string, keysAndValues ...any) { l.record(msg, keysAndValues...) }

func (l *recordingLogger) all() []logLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logLine(nil), l.lines...)
}

func newLoggedApp(log *recordingLogger) *fiber.App {
	app := fiber.New()
	app.Use(middleware.RequestLogger(log))
	app.All("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestRequestLogger(t *testing.T) {
	t.Run("logs method path and status", func(t *testing.T) {
		log := &recordingLogger{}
		app := newLoggedApp(log)

		_, err := app.Test(httptest.NewRequest("GET", "/dashboard", nil))
		require.NoError(t, err)

		lines := log.all()
		require.Len(t, lines, 1)
		assert.Equal(t, "http request", lines[0].msg)
		assert.Equal(t, "GET", lines[0].attrs["method"])
		assert.Equal(t, "/dashboard", lines[0].attrs["path"])
		assert.Equal(t, 200, lines[0].attrs["status"])
		assert.NotContains(t, lines[0].attrs, "fragment_id")
	})

	t.Run("partial refreshes carry the fragment id", func(t *testing.T) {
		log := &recordingLogger{}
		app := newLoggedApp(log)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.Header.Set("X-Pagelet", "feed")
		_, err := app.Test(req)
		require.NoError(t, err)

		_, err = app.Test(httptest.NewRequest("GET", "/dashboard?_pagelet=side", nil))
		require.NoError(t, err)

		lines := log.all()
		require.Len(t, lines, 2)
		assert.Equal(t, "feed", lines[0].attrs["fragment_id"])
		assert.Equal(t, "side", lines[1].attrs["fragment_id"])
	})

	t.Run("infrastructure endpoints are not logged", func(t *testing.T) {
		log := &recordingLogger{}
		app := newLoggedApp(log)

		for _, path := range []string{"/_health", "/metrics", "/_live/feed"} {
			_, err := app.Test(httptest.NewRequest("GET", path, nil))
			require.NoError(t, err)
		}
		assert.Empty(t, log.all())
	})
}
