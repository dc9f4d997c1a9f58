package middleware_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet/middleware"
)

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(middleware.WithRegistry(reg))

	m.ObserveFragment("feed", 5*time.Millisecond, false)
	m.ObserveFragment("feed", 5*time.Millisecond, false)
	m.ObserveFragment("side", 5*time.Millisecond, true)
	m.ObserveFlush(128)
	m.ObserveFlush(64)

	families, err := reg.Gather()
	require.NoError(t, err)

	counters := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			name := f.GetName()
			for _, label := range metric.GetLabel() {
				name += "/" + label.GetValue()
			}
			if metric.GetCounter() != nil {
				counters[name] = metric.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, float64(2), counters["pagelet_fragment_renders_total/feed/ok"])
	assert.Equal(t, float64(1), counters["pagelet_fragment_renders_total/side/error"])
	assert.Equal(t, float64(2), counters["pagelet_flushes_total"])
	assert.Equal(t, float64(192), counters["pagelet_flushed_bytes_total"])
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(middleware.WithRegistry(reg), middleware.WithNamespace("testapp"))

	app := fiber.New()
	app.Use(m.Handler())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "testapp_requests_total" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
