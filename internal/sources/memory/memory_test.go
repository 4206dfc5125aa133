package memory

import (
	"context"
	"testing"

	"txdash/internal/core"
)

func TestSourceLoadAndSet(t *testing.T) {
	s := New(core.RawTable{
		Columns: []string{"acquirer_response"},
		Rows:    []core.RawRecord{{"acquirer_response": "FRAUD"}},
	})

	table, err := s.Load(context.Background())
	if err != nil || len(table.Rows) != 1 {
		t.Fatalf("unexpected load: rows=%d err=%v", len(table.Rows), err)
	}

	// mutating the returned slice does not touch the stored table
	table.Rows = append(table.Rows[:0], core.RawRecord{"acquirer_response": "APPROVED"})
	again, _ := s.Load(context.Background())
	if got := again.Rows[0]["acquirer_response"]; got != "FRAUD" {
		t.Fatalf("stored table modified: %q", got)
	}

	s.Set(core.RawTable{Columns: []string{"x"}})
	table, _ = s.Load(context.Background())
	if len(table.Rows) != 0 || table.Columns[0] != "x" {
		t.Fatalf("unexpected table after Set: %+v", table)
	}
	if s.Loads() != 3 {
		t.Fatalf("loads: got %d want 3", s.Loads())
	}
}
