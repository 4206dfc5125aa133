package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/metrics"
	"txdash/internal/normalize"
	"txdash/internal/sources"
	"txdash/internal/sources/csvfile"
	"txdash/internal/storage"
)

// DatasetStore persists an imported raw table, replacing the previous one.
type DatasetStore interface {
	ReplaceDataset(ctx context.Context, source string, table core.RawTable) (storage.ImportRecord, error)
}

// Opener returns the source for an import path.
type Opener func(path string) sources.Source

// CSVOpener opens import paths as CSV files.
func CSVOpener(path string) sources.Source { return csvfile.New(path) }

// ImportWorker loads CSV exports named by import messages and stores them
type ImportWorker struct {
	store      DatasetStore
	open       Opener
	baseDir    string
	normalizer *normalize.Normalizer
}

// NewImportWorker creates a worker. When baseDir is set, relative paths are
// resolved against it and paths outside it are refused.
func NewImportWorker(store DatasetStore, open Opener, baseDir string, normalizer *normalize.Normalizer) *ImportWorker {
	if open == nil {
		open = CSVOpener
	}
	if normalizer == nil {
		normalizer = normalize.New(normalize.Options{})
	}
	return &ImportWorker{
		store:      store,
		open:       open,
		baseDir:    baseDir,
		normalizer: normalizer,
	}
}

// HandleImportMessage processes a single import message from AMQP
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.ImportMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"id", msg.ID,
		"path", msg.Path,
		"requested_at", msg.RequestedAt.Format(time.RFC3339))

	rec, err := w.Import(ctx, msg.Path)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.ImportsTotal.WithLabelValues("success").Inc()

	slog.InfoContext(ctx, "Successfully imported dataset",
		"id", msg.ID,
		"import_id", rec.ID,
		"rows", rec.RowCount)
	return nil
}

// Import loads path and replaces the stored dataset with it. Failures that a
// retry cannot fix wrap amqp.ErrPermanent.
func (w *ImportWorker) Import(ctx context.Context, path string) (storage.ImportRecord, error) {
	resolved, err := w.resolve(path)
	if err != nil {
		return storage.ImportRecord{}, err
	}

	src := w.open(resolved)
	table, err := src.Load(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, csvfile.ErrEmptyHeader) {
			return storage.ImportRecord{}, fmt.Errorf("%w: load %s: %w", amqp.ErrPermanent, src.Name(), err)
		}
		return storage.ImportRecord{}, fmt.Errorf("load %s: %w", src.Name(), err)
	}

	// Normalize once so bad exports show up in the worker log.
	_, stats := w.normalizer.Normalize(ctx, table)
	if stats.Output == 0 {
		slog.WarnContext(ctx, "Imported table has no usable rows", "source", src.Name(), "stats", stats.String())
	} else {
		slog.InfoContext(ctx, "Normalized import", "source", src.Name(), "stats", stats.String())
	}

	rec, err := w.store.ReplaceDataset(ctx, src.Name(), table)
	if err != nil {
		return storage.ImportRecord{}, fmt.Errorf("store dataset: %w", err)
	}
	return rec, nil
}

func (w *ImportWorker) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty import path", amqp.ErrPermanent)
	}
	if w.baseDir == "" {
		return path, nil
	}

	base, err := filepath.Abs(w.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve import dir: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside import dir %s", amqp.ErrPermanent, path, base)
	}
	return full, nil
}
