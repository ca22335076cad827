package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geoindex/internal/pkg/metrics"
)

const (
	queryTimeout   = 15 * time.Second
	rebuildTimeout = 5 * time.Minute
)

// legacyRoutes are kept for clients of the first API draft.
var legacyRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/nearby",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/places/nearby",
	},
	{
		Path:        "/v1/geohash/:hash",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/geo/geohash/:hash",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP, queries are cheap
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Place index
	v1.Get("/places/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), queryTimeout))
	v1.Get("/places/box", timeout.NewWithContext(PlacesInBoxHandler(deps), queryTimeout))
	v1.Get("/places/:id", timeout.NewWithContext(GetPlaceHandler(deps), queryTimeout))
	v1.Get("/index/stats", IndexStatsHandler(deps))
	v1.Post("/index/rebuild", timeout.NewWithContext(RebuildIndexHandler(deps), rebuildTimeout))

	// Geo math
	v1.Get("/geo/distance", DistanceHandler(deps))
	v1.Get("/geo/destination", DestinationHandler(deps))
	v1.Get("/geo/bbox", BoundingBoxHandler(deps))
	v1.Post("/geo/midpoint", MidpointHandler(deps))
	v1.Post("/geo/center", timeout.NewWithContext(CenterHandler(deps), queryTimeout))
	v1.Post("/geo/spread", timeout.NewWithContext(SpreadHandler(deps), queryTimeout))
	v1.Get("/geo/geohash", EncodeGeohashHandler(deps))
	v1.Get("/geo/geohash/:hash", DecodeGeohashHandler(deps))
	v1.Get("/geo/dms", FormatDMSHandler(deps))
	v1.Get("/geo/dms/parse", ParseDMSHandler(deps))

	// Deprecated aliases
	v1.Get("/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), queryTimeout))
	v1.Get("/geohash/:hash", DecodeGeohashHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
