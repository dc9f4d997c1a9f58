package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/karloscodes/pagelet"
)

// Recover turns a panicking handler into a 500 instead of tearing the
// server down. Panics inside fragment renders never reach this layer (the
// dispatcher contains those itself); this catches panics in routing, the
// live endpoints and user-installed Fiber middleware. The stack is logged
// through the engine logger so it lands in the same sink as the request
// logs.
func Recover(log pagelet.Logger) fiber.Handler {
	return fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			log.Error("handler panicked",
				"panic", e,
				"method", c.Method(),
				"path", c.Path(),
				"stack", string(debug.Stack()),
			)
		},
	})
}
