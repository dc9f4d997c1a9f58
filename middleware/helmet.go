package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// Helmet sets the baseline security headers on every response. No
// Content-Security-Policy is set by default: each streamed fragment
// envelope carries an inline arrival script, and a nonce chosen here
// cannot cover markup produced after the headers are already on the wire.
func Helmet() fiber.Handler {
	return helmet.New(helmet.Config{
		ReferrerPolicy: "same-origin",
	})
}

// HelmetWithConfig applies a caller-provided header policy, for apps that
// serve the arrival script from a static file and can afford a CSP.
func HelmetWithConfig(config helmet.Config) fiber.Handler {
	return helmet.New(config)
}
