package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"txdash/internal/amqp"
	"txdash/internal/backend"
	"txdash/internal/cli"
	"txdash/internal/log"
	"txdash/internal/sources/csvfile"
	"txdash/internal/worker"
)

// --- Publish Command ---

var publishCmd = &cobra.Command{
	Use:   "publish [path]",
	Short: "Queue a CSV export for txdash-worker",
	Long:  "Publish an import message naming a CSV file. The worker resolves the path against IMPORT_DIR.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer client.Close()

		msg := amqp.NewImportMessage(args[0])
		if err := client.PublishImport(cmd.Context(), msg); err != nil {
			return err
		}
		logger.Info("Import queued", "id", msg.ID, log.FieldPath, msg.Path, "queue", cfg.AMQPQueue)
		fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
		return nil
	},
}

// --- Import Command ---

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Load a CSV export into the SQLite store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()

		w := worker.NewImportWorker(repo, worker.CSVOpener, "", cli.NewNormalizer(cfg))
		rec, err := w.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s (import %s, %s)\n",
			rec.RowCount, rec.Source, rec.ID, rec.ImportedAt.Format(time.RFC3339))
		return nil
	},
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [out.csv]",
	Short: "Write the configured source to a CSV file",
	Long:  "Load the dataset from DATA_BACKEND and write it as CSV. Use - for stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer result.Close()

		table, err := result.Source.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load %s: %w", result.Source.Name(), err)
		}

		out := cmd.OutOrStdout()
		if args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		bw := bufio.NewWriter(out)
		if err := csvfile.Write(bw, table); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		logger.Info("Dataset exported", log.FieldSource, result.Source.Name(), log.FieldRows, len(table.Rows), log.FieldPath, args[0])
		return nil
	},
}

// --- Stats Command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the configured source and print what normalization keeps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer result.Close()

		loader := backend.NewDatasetLoader(result.Source, cli.NewNormalizer(cfg), logger)
		ds, stats, err := loader.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n%s\nhas_timestamps: %t\n",
			loader.SourceName(), stats.String(), ds.HasTimestamps)
		return nil
	},
}

func openBackend(cmd *cobra.Command) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), bc)
}
