package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/app"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/service"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	redisclient "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage/postgres"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/divider"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, log, err := app.Bootstrap("block-divider", *configPath)
	if err != nil {
		slog.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	rdb, err := redisclient.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := divider.New(
		divider.Config{BatchSize: cfg.Consumer.BatchSize},
		queue.NewClient(rdb),
		postgres.NewSubscriptionRepo(db),
		queue.NewWorker(rdb, queue.WorkerConfig{Queue: queue.QueueBlockDivider}, log),
		log,
	)

	ops := metrics.NewServer("block-divider", cfg.Ops.Port, log)

	if err := app.Run(service.Group{ops, svc}, log); err != nil {
		log.Error("service failed", "error", err)
		os.Exit(1)
	}
}
