package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/geoindex/internal/adapters/nats"
	"github.com/samirrijal/geoindex/internal/adapters/postgres"
	"github.com/samirrijal/geoindex/internal/pkg/config"
	"github.com/samirrijal/geoindex/internal/pkg/logging"
	"github.com/samirrijal/geoindex/internal/workflows"
)

type Options struct {
	Trigger   bool   `short:"t" long:"trigger"    description:"Start one ReindexWorkflow, wait for it and exit instead of running the worker"`
	Source    string `short:"s" long:"source"     description:"Source reported in the places.changed event" default:"reindexer"`
	MinPlaces int    `short:"m" long:"min-places" description:"Refuse to announce fewer stored places" default:"1"`
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

	cfg, err := config.Load("geoindex-reindexer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if opts.Trigger {
		if err := trigger(c, cfg.Temporal.TaskQueue, opts); err != nil {
			log.Fatalf("reindex: %v", err)
		}
		return
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReindexWorkflow)
	w.RegisterActivity(&workflows.ReindexActivities{
		Places: postgres.NewPlaceRepo(db),
		Events: pub,
	})

	logger.Info("reindex worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func trigger(c client.Client, taskQueue string, opts Options) error {
	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("reindex-%s", opts.Source),
		TaskQueue: taskQueue,
	}, workflows.ReindexWorkflowName, workflows.ReindexInput{
		Source:    opts.Source,
		MinPlaces: opts.MinPlaces,
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	var res workflows.ReindexResult
	if err := run.Get(ctx, &res); err != nil {
		return err
	}
	slog.Info("reindex announced", "workflow_id", run.GetID(), "places", res.Places, "backfilled", res.Backfilled)
	return nil
}
