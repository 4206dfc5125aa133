package memory

import (
	"context"
	"sync"

	"txdash/internal/core"
	"txdash/internal/sources"
)

// Source serves a table held in memory. Set swaps it atomically, which makes
// it usable as a reload target in tests and local runs.
type Source struct {
	mu    sync.Mutex
	table core.RawTable
	loads int
}

var _ sources.Source = (*Source)(nil)

func New(table core.RawTable) *Source {
	return &Source{table: table}
}

func (s *Source) Name() string { return "memory" }

// Load returns a copy of the current table header and rows.
func (s *Source) Load(_ context.Context) (core.RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return core.RawTable{
		Columns: append([]string(nil), s.table.Columns...),
		Rows:    append([]core.RawRecord(nil), s.table.Rows...),
	}, nil
}

// Set replaces the table returned by later loads.
func (s *Source) Set(table core.RawTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
}

// Loads reports how many times Load was called.
func (s *Source) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}
