package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/config"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	redisclient "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [queue]",
	Short: "Delete every waiting job and dedup marker on a queue",
	Args:  cobra.ExactArgs(1),
	Run:   runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	name := args[0]
	if !slices.Contains(allQueues, name) {
		fmt.Printf("Unknown queue %q, expected one of %v\n", name, allQueues)
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

	if err := queue.NewClient(rdb).Purge(ctx, name); err != nil {
		slog.Error("failed to purge queue", "queue", name, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Purged queue %s\n", name)
}
