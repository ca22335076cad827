package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoindex/internal/adapters/postgres"
	"github.com/samirrijal/geoindex/internal/adapters/valkey"
	"github.com/samirrijal/geoindex/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Places *usecases.PlaceService
	Geo    *usecases.GeoService
	NATS   *nats.Conn
	DB     *postgres.DB
	Cache  *valkey.Cache
}
