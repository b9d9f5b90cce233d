package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as uncacheable. Generated documents carry customer
// data and must not linger in shared caches.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderPragma, "no-cache")
		return c.Next()
	}
}
