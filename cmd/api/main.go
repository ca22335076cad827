package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geoindex/internal/adapters/http"
	"github.com/samirrijal/geoindex/internal/adapters/memcache"
	natsadapter "github.com/samirrijal/geoindex/internal/adapters/nats"
	"github.com/samirrijal/geoindex/internal/adapters/postgres"
	"github.com/samirrijal/geoindex/internal/adapters/valkey"
	"github.com/samirrijal/geoindex/internal/core/ports"
	"github.com/samirrijal/geoindex/internal/core/usecases"
	"github.com/samirrijal/geoindex/internal/pkg/config"
	"github.com/samirrijal/geoindex/internal/pkg/logging"
	"github.com/samirrijal/geoindex/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geoindex-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint, cfg.Telemetry.SampleRatio)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache. A nil *valkey.Cache must not end up inside the interface.
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable, using in-process cache", "error", err)
		valkeyCache = nil
		cache = memcache.New(time.Minute)
	} else {
		cache = valkeyCache
		defer valkeyCache.Close()
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, index events disabled", "error", err)
	} else {
		events = pub
		defer pub.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	repo := postgres.NewPlaceRepo(db)

	places := usecases.NewPlaceService(repo, cache, events, usecases.PlaceOptions{
		Precision:         cfg.IndexPrecision(),
		ParallelThreshold: cfg.Index.ParallelThreshold,
		MaxRadiusMeters:   cfg.Index.MaxRadiusMeters,
		MaxResults:        cfg.Index.MaxResults,
		CacheTTLSeconds:   cfg.Valkey.TTL,
	})
	geo := usecases.NewGeoService(repo)

	// The server starts before the first build finishes; /v1/ready and the
	// place endpoints report 503 until then.
	go func() {
		stats, err := places.Rebuild(ctx)
		if err != nil {
			slog.Error("initial index build failed", "error", err)
			return
		}
		slog.Info("initial index built", "points", stats.Points, "duration", stats.Duration)
	}()

	if cfg.Index.RebuildInterval > 0 {
		go places.RunPeriodicRebuild(ctx, cfg.Index.RebuildInterval)
	}

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, rebuilds are periodic only", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribePlacesChanged(ctx, places.HandlePlacesChanged); err != nil {
			slog.Warn("subscribe places.changed failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Places: places,
		Geo:    geo,
		NATS:   natsConn,
		DB:     db,
		Cache:  valkeyCache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "geoindex API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
