package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/config"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	redisclient "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/pipeline/fetcher"
)

var reseedCmd = &cobra.Command{
	Use:   "reseed [height]",
	Short: "Purge the fetch queue and restart fetching at a given height",
	Long:  `Reseed wipes the fetch queue, including delayed jobs and dedup markers, and enqueues a fresh fetch job at the given height. Stop the fetcher first; a running fetcher may race the purge.`,
	Args:  cobra.ExactArgs(1),
	Run:   runReseed,
}

func init() {
	rootCmd.AddCommand(reseedCmd)
}

func runReseed(cmd *cobra.Command, args []string) {
	height, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid block height: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rdb, err := redisclient.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rdb.Close()
	}()

	client := queue.NewClient(rdb)
	if err := client.Purge(ctx, queue.QueueBlockFetcher); err != nil {
		slog.Error("failed to purge fetch queue", "error", err)
		os.Exit(1)
	}

	err = client.Add(ctx, queue.Job{
		Queue:   queue.QueueBlockFetcher,
		Name:    queue.JobFetchBlock,
		Payload: domain.FetchJob{Height: height},
		Opts:    queue.Options{JobID: fetcher.JobID(height)},
	})
	if err != nil {
		slog.Error("failed to enqueue seed job", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Reseeded fetch queue at height %d\n", height)
}
