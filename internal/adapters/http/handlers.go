package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// pointsRequest is the body of the set operations on coordinates.
type pointsRequest struct {
	Points []domain.GeoPoint `json:"points"`
}

// spreadRequest is the body of the spread endpoint.
type spreadRequest struct {
	IDs []int64 `json:"ids"`
}

// NearbyPlacesHandler returns places within a radius of a point, nearest first.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius, err := floatOr(c, "radius", 1000)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		limit := c.QueryInt("limit", 50)

		places, err := deps.Places.Nearby(c.UserContext(), v[0], v[1], radius, limit)
		if err != nil {
			return fromError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(places)
	}
}

// PlacesInBoxHandler returns places inside a bounding box ordered by id.
func PlacesInBoxHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "min_lat", "min_lon", "max_lat", "max_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		bounds := domain.Bounds{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
		places, total, err := deps.Places.InBox(c.UserContext(), bounds, offset, limit)
		if err != nil {
			return fromError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: places, Pagination: pg})
	}
}

// GetPlaceHandler returns a single place by ID.
func GetPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "place id must be an integer")
		}
		place, err := deps.Places.GetByID(c.UserContext(), id)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(place)
	}
}

// IndexStatsHandler describes the served index snapshot.
func IndexStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Places.Stats()
		if err != nil {
			return fromError(c, err)
		}
		c.Set("Cache-Control", "no-cache")
		return c.JSON(stats)
	}
}

// RebuildIndexHandler reloads the index from the database.
func RebuildIndexHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Places.Rebuild(c.UserContext())
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(stats)
	}
}

// DistanceHandler returns the exact and approximate distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "from_lat", "from_lon", "to_lat", "to_lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		d, err := deps.Geo.Distance(
			domain.GeoPoint{Lat: v[0], Lon: v[1]},
			domain.GeoPoint{Lat: v[2], Lon: v[3]},
		)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(d)
	}
}

// DestinationHandler returns the point at a distance and bearing from a start.
func DestinationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "lat", "lon", "distance_km", "bearing")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		dest, err := deps.Geo.Destination(domain.GeoPoint{Lat: v[0], Lon: v[1]}, v[2], v[3])
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(dest)
	}
}

// BoundingBoxHandler returns the approximate box around a point.
func BoundingBoxHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "lat", "lon", "distance_km")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		box, err := deps.Geo.BoundingBox(domain.GeoPoint{Lat: v[0], Lon: v[1]}, v[2])
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(box)
	}
}

// MidpointHandler returns the geographic midpoint of the posted points.
func MidpointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := deps.Geo.Midpoint(req.Points)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(p)
	}
}

// CenterHandler returns the point with the least total distance to the
// posted points.
func CenterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := deps.Geo.Center(req.Points)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(p)
	}
}

// SpreadHandler returns the largest distance between the posted places.
func SpreadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req spreadRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		km, err := deps.Geo.Spread(c.UserContext(), req.IDs)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(fiber.Map{"km": km})
	}
}

// EncodeGeohashHandler returns the geohash of a point.
func EncodeGeohashHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		hash, err := deps.Geo.Encode(domain.GeoPoint{Lat: v[0], Lon: v[1]}, c.QueryInt("length", 0))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(fiber.Map{"hash": hash})
	}
}

// DecodeGeohashHandler returns the cell of a geohash.
func DecodeGeohashHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cell, err := deps.Geo.Decode(strings.ToLower(c.Params("hash")))
		if err != nil {
			return fromError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(cell)
	}
}

// FormatDMSHandler formats a point in degrees, minutes and seconds.
func FormatDMSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := requireFloats(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		dms, err := deps.Geo.FormatDMS(domain.GeoPoint{Lat: v[0], Lon: v[1]})
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(fiber.Map{"dms": dms})
	}
}

// ParseDMSHandler parses a "<lat>,<lon>" pair in DMS notation.
func ParseDMSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 100 {
			return errBadRequest(c, "query too long (max 100 characters)")
		}
		p, err := deps.Geo.ParseDMS(q)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(p)
	}
}
