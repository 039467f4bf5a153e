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
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/metrics"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/delivery"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	concurrency := flag.Int("concurrency", 4, "Number of concurrent delivery workers")
	flag.Parse()

	cfg, log, err := app.Bootstrap("block-webhook", *configPath)
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

	svc := delivery.NewWebhook(
		queue.NewClient(rdb),
		queue.NewWorker(rdb, queue.WorkerConfig{
			Queue:       queue.QueueBlockWebhook,
			Concurrency: *concurrency,
		}, log),
		log,
	)

	ops := metrics.NewServer("block-webhook", cfg.Ops.Port, log)

	if err := app.Run(service.Group{ops, svc}, log); err != nil {
		log.Error("service failed", "error", err)
		os.Exit(1)
	}
}
