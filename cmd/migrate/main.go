package main

import (
	"context"
	"log"
	"os"

	"github.com/samirrijal/geoindex/internal/adapters/postgres"
	"github.com/samirrijal/geoindex/internal/pkg/config"
	"github.com/samirrijal/geoindex/internal/pkg/logging"
	"github.com/samirrijal/geoindex/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up>")
	}

	cfg, err := config.Load("geoindex-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		applied, err := postgres.Migrate(ctx, db, migrations.FS)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied", "count", len(applied), "files", applied)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
