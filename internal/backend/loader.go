package backend

import (
	"context"
	"fmt"
	"time"

	"txdash/internal/core"
	"txdash/internal/log"
	"txdash/internal/metrics"
	"txdash/internal/normalize"
	"txdash/internal/sources"
)

// DatasetLoader reads the raw table from a source and normalizes it.
type DatasetLoader struct {
	source     sources.Source
	normalizer *normalize.Normalizer
	logger     *log.Logger
}

// NewDatasetLoader wires a source to a normalizer. A nil logger uses slog's default.
func NewDatasetLoader(source sources.Source, normalizer *normalize.Normalizer, logger *log.Logger) *DatasetLoader {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DatasetLoader{
		source:     source,
		normalizer: normalizer,
		logger:     logger.WithComponent(log.ComponentBackend),
	}
}

// SourceName identifies the underlying source.
func (l *DatasetLoader) SourceName() string { return l.source.Name() }

// Load returns the normalized dataset. Only source failures are errors;
// rows the normalizer rejects are reported in the stats.
func (l *DatasetLoader) Load(ctx context.Context) (core.Dataset, normalize.Stats, error) {
	start := time.Now()

	table, err := l.source.Load(ctx)
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues(l.source.Name(), "error").Inc()
		log.NewStructuredLogger(l.logger).LogError(ctx, "Dataset load failed", err,
			log.ComponentBackend, log.OpLoad, log.NewFields().WithDataset(l.source.Name(), 0, 0, 0))
		return core.Dataset{}, normalize.Stats{}, fmt.Errorf("load %s: %w", l.source.Name(), err)
	}

	ds, stats := l.normalizer.Normalize(ctx, table)

	metrics.DatasetLoadsTotal.WithLabelValues(l.source.Name(), "success").Inc()
	metrics.RecordDataset(stats.Input, stats.Output, stats.DroppedTimestamp, stats.DroppedStatus)

	log.NewStructuredLogger(l.logger).LogDatasetLoaded(ctx, l.source.Name(),
		stats.Input, stats.Output, stats.DroppedTimestamp+stats.DroppedStatus)
	l.logger.DebugContext(ctx, "Dataset load timing", "duration", time.Since(start))

	return ds, stats, nil
}
