package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that the handler
// left without one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if c.Response().StatusCode() >= 500 {
			return err
		}

		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

// cacheControlFor picks a default policy by endpoint. Index answers change
// with every rebuild; pure geo math never changes.
func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready":
		return "public, max-age=10"
	case path == "/metrics" || strings.HasPrefix(path, "/v1/index/"):
		return "no-cache"
	case path == "/graphql":
		return "private, max-age=0"
	case strings.HasPrefix(path, "/v1/geo/"):
		return "public, max-age=86400"
	case strings.HasPrefix(path, "/v1/places/"):
		return "public, max-age=300"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=60"
	}
	return ""
}
