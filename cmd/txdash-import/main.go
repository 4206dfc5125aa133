// Command txdash-import moves transaction exports into the SQLite store,
// either directly or by queueing them for txdash-worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"txdash/internal/cli"
	"txdash/internal/config"
	"txdash/internal/log"
)

var (
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "txdash-import",
	Short: "Import, queue and export transaction datasets",
	Long: `txdash-import feeds the transaction dashboards.

It can load a CSV export straight into the SQLite store, queue the export
for txdash-worker over AMQP, export the configured source back to CSV, or
print the normalization summary of the configured source.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		logger = cli.SetupLogger(level, os.Getenv("LOG_FORMAT"))

		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}
