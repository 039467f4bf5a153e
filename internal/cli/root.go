// Package cli implements the operator command line for the block
// distribution pipeline: inspecting queue depth and cursors, purging
// queues, and reseeding the fetcher at a chosen height.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "blockfeedctl",
	Short: "Operator tooling for the block distribution pipeline",
	Long:  `blockfeedctl inspects and repairs the block distribution pipeline: queue depths, block cursors, subscriber counts, queue purges, and fetcher reseeding.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
}
