package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	natsadapter "github.com/samirrijal/geoindex/internal/adapters/nats"
	"github.com/samirrijal/geoindex/internal/adapters/postgres"
	"github.com/samirrijal/geoindex/internal/ingest"
	"github.com/samirrijal/geoindex/internal/pkg/config"
	"github.com/samirrijal/geoindex/internal/pkg/logging"
	"github.com/samirrijal/geoindex/internal/pkg/telemetry"
)

type Options struct {
	FeatureClasses []string `short:"f" long:"feature-class" description:"Keep only these GeoNames feature classes (e.g. P, T)"`
	Countries      []string `short:"c" long:"country"       description:"Keep only these ISO country codes"`
	MinPopulation  int64    `short:"p" long:"min-population" description:"Skip places with a smaller population" default:"0"`
	BatchSize      int      `short:"b" long:"batch-size"    description:"Places per database round trip" default:"500"`
	NoPublish      bool     `long:"no-publish"              description:"Do not announce the change on NATS"`

	Args struct {
		Sources []string `positional-arg-name:"source" description:"GeoNames dump: file path or http(s) URL, plain .txt or .zip" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load("geoindex-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint, cfg.Telemetry.SampleRatio)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	loader := &ingest.Loader{
		Places:    postgres.NewPlaceRepo(db),
		BatchSize: opts.BatchSize,
		Filter: ingest.Filter{
			FeatureClasses: opts.FeatureClasses,
			Countries:      opts.Countries,
			MinPopulation:  opts.MinPopulation,
		},
		Logger: logger,
	}

	if !opts.NoPublish {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable, API instances will pick up changes on their next periodic rebuild", "error", err)
		} else {
			defer pub.Close()
			loader.Events = pub
		}
	}

	client := &http.Client{Timeout: 10 * time.Minute}

	failed := false
	for _, src := range opts.Args.Sources {
		start := time.Now()
		res, err := ingestSource(ctx, client, loader, src)
		if err != nil {
			logger.Error("ingest failed", "source", src, "error", err)
			failed = true
			continue
		}
		logger.Info("ingest complete", "source", src,
			"stored", res.Stored, "skipped", res.Skipped, "rejected", res.Rejected,
			"duration", time.Since(start))
	}
	if failed {
		os.Exit(1)
	}
}

func ingestSource(ctx context.Context, client *http.Client, loader *ingest.Loader, src string) (ingest.Result, error) {
	rc, err := open(ctx, client, src)
	if err != nil {
		return ingest.Result{}, err
	}
	defer rc.Close()
	return loader.LoadGeoNames(ctx, rc, path.Base(src))
}

// open returns the dump behind src. Zip archives, as published on the
// GeoNames download server, are opened at their first .txt entry that is
// not the readme.
func open(ctx context.Context, client *http.Client, src string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
		}
		rc = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		rc = f
	}

	if !strings.HasSuffix(strings.ToLower(src), ".zip") {
		return rc, nil
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		name := strings.ToLower(path.Base(f.Name))
		if strings.HasSuffix(name, ".txt") && name != "readme.txt" {
			slog.Debug("reading archive entry", "entry", f.Name)
			return f.Open()
		}
	}
	return nil, fmt.Errorf("no dump found in %s", src)
}
