package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/config"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/queue"
	redisclient "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/redis"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/storage/postgres"
)

var allQueues = []string{
	queue.QueueBlockFetcher,
	queue.QueueBlockDivider,
	queue.QueueBlockConsumer,
	queue.QueueBlockWebhook,
	queue.QueueBlockMailer,
	queue.QueueBlockLogger,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depths, cursors, and subscriber counts",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "QUEUE\tJOBS")
	for _, q := range allQueues {
		count, err := client.Count(ctx, q)
		if err != nil {
			slog.Error("failed to count queue", "queue", q, "error", err)
			os.Exit(1)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", q, count)
	}
	_ = w.Flush()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.blockchain,
		       COUNT(s.id) FILTER (WHERE s.is_active AND s.method = 'WEBHOOK') AS webhooks,
		       COUNT(s.id) FILTER (WHERE s.is_active AND s.method = 'EMAIL')   AS emails
		FROM block_cursor c
		LEFT JOIN subscriptions s ON s.cursor_id = c.id
		GROUP BY c.id, c.blockchain
		ORDER BY c.blockchain`)
	if err != nil {
		slog.Error("failed to query cursors", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	fmt.Println()
	if err := writeCursorTable(os.Stdout, rows); err != nil {
		slog.Error("failed to read cursors", "error", err)
		os.Exit(1)
	}
}

// cursorRows is the slice of *sql.Rows the cursor table needs.
type cursorRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func writeCursorTable(out io.Writer, rows cursorRows) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CURSOR\tCHAIN\tWEBHOOKS\tEMAILS")
	for rows.Next() {
		var id, chain string
		var webhooks, emails int64
		if err := rows.Scan(&id, &chain, &webhooks, &emails); err != nil {
			return fmt.Errorf("failed to scan cursor row: %w", err)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", id, chain, webhooks, emails)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate cursor rows: %w", err)
	}
	return w.Flush()
}
