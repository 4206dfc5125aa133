package sources

import (
	"context"

	"txdash/internal/core"
)

// Ports for inbound dataset adapters.
type (
	// Source reads the full transaction table. Implementations return an
	// error only for source-level failures (missing file, bad header,
	// unreachable service); row content is never validated here.
	Source interface {
		Load(ctx context.Context) (core.RawTable, error)
		// Name identifies the source in logs and import records.
		Name() string
	}
)
