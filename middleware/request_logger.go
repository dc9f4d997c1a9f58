// Package middleware provides the Fiber-level middleware of a pagelet
// server: panic recovery, security headers, rate limiting, request logging
// and Prometheus metrics.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/karloscodes/pagelet"
)

// RequestLogger emits one structured line per request. Infrastructure
// endpoints (health, metrics, live sockets) are not logged. Partial
// refreshes carry the fragment they asked for, via the X-Pagelet header or
// the _pagelet query parameter, so they can be told apart from full page
// loads.
func RequestLogger(logger pagelet.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		fragmentID := utils.CopyString(c.Get("X-Pagelet"))
		if fragmentID == "" {
			fragmentID = utils.CopyString(c.Query("_pagelet"))
		}

		err := c.Next()
		stop := time.Since(start)

		path := c.Path()
		if exemptPath(path) {
			return err
		}

		attrs := []any{
			"method", c.Method(),
			"path", path,
			"status", c.Response().StatusCode(),
			"duration", stop,
			"ip", c.IP(),
		}
		if fragmentID != "" {
			attrs = append(attrs, "fragment_id", fragmentID)
		}
		logger.Info("http request", attrs...)

		return err
	}
}
