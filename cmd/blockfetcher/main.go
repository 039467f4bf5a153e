package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/app"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/service"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/chain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	redisclient "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage/postgres"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/fetcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, log, err := app.Bootstrap("block-fetcher", *configPath)
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

	adapter, err := chain.Resolve(ctx, cfg.Chain.Name, cfg.Chain.NetworkURL)
	if err != nil {
		log.Error("failed to resolve chain", "error", err)
		os.Exit(1)
	}
	defer adapter.Close()

	svc := fetcher.New(
		fetcher.Config{
			PollInterval: time.Duration(cfg.Fetcher.PollIntervalMs) * time.Millisecond,
			MaxQueueLen:  cfg.Fetcher.MaxQueueLen,
		},
		adapter,
		queue.NewClient(rdb),
		postgres.NewCursorRepo(db),
		queue.NewWorker(rdb, queue.WorkerConfig{Queue: queue.QueueBlockFetcher}, log),
		log,
	)

	ops := metrics.NewServer("block-fetcher", cfg.Ops.Port, log)

	if err := app.Run(service.Group{ops, svc}, log); err != nil {
		log.Error("service failed", "error", err)
		os.Exit(1)
	}
}
