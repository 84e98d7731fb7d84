package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	// Development disables HSTS for plain-HTTP local runs.
	Development bool
}

// Headers sets the response headers appropriate for a JSON API that is never
// rendered as a page: no framing, no sniffing, no caching of answers.
func Headers(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if !cfg.Development {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		// Answers may reference per-user history; keep them out of shared
		// caches.
		if strings.HasPrefix(c.Path(), "/api/") {
			c.Set("Cache-Control", "no-store")
		}

		return c.Next()
	}
}
