package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet/middleware"
)

func TestRecover(t *testing.T) {
	log := &recordingLogger{}
	app := fiber.New()
	app.Use(middleware.Recover(log))
	app.Get("/boom", func(c *fiber.Ctx) error { panic("nil map write") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	lines := log.all()
	require.Len(t, lines, 1)
	assert.Equal(t, "handler panicked", lines[0].msg)
	assert.Equal(t, "/boom", lines[0].attrs["path"])
	assert.NotEmpty(t, lines[0].attrs["stack"])
}
