package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/sources"
	"txdash/internal/sources/memory"
	"txdash/internal/storage"
)

type fakeStore struct {
	source string
	table  core.RawTable
	calls  int
	err    error
}

func (f *fakeStore) ReplaceDataset(_ context.Context, source string, table core.RawTable) (storage.ImportRecord, error) {
	f.calls++
	if f.err != nil {
		return storage.ImportRecord{}, f.err
	}
	f.source = source
	f.table = table
	return storage.ImportRecord{ID: "imp-1", Source: source, RowCount: len(table.Rows)}, nil
}

const csvData = "creation_date,amount,currency,acquirer_response\n" +
	"2024-05-01 10:00:00,100,EUR,FRAUD\n" +
	"2024-05-01 10:05:00,20,EUR,APPROVED\n"

func writeCSV(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(csvData), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportWorker_HandleImportMessage(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "export.csv")
	store := &fakeStore{}
	w := NewImportWorker(store, nil, "", nil)

	if err := w.HandleImportMessage(context.Background(), amqp.NewImportMessage(path)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store call, got %d", store.calls)
	}
	if len(store.table.Rows) != 2 {
		t.Errorf("rows: got %d want 2", len(store.table.Rows))
	}
	if store.source != "csv:"+path {
		t.Errorf("source: got %q", store.source)
	}
}

func TestImportWorker_PermanentFailures(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "inside.csv")
	outside := writeCSV(t, t.TempDir(), "outside.csv")

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "missing.csv"},
		{"empty path", "  "},
		{"escapes base dir", "../elsewhere.csv"},
		{"absolute outside base dir", outside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			w := NewImportWorker(store, CSVOpener, dir, nil)
			_, err := w.Import(context.Background(), tt.path)
			if !errors.Is(err, amqp.ErrPermanent) {
				t.Fatalf("expected permanent error, got %v", err)
			}
			if store.calls != 0 {
				t.Error("store should not be called")
			}
		})
	}
}

func TestImportWorker_RelativePathUnderBaseDir(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "inside.csv")
	store := &fakeStore{}
	w := NewImportWorker(store, CSVOpener, dir, nil)

	rec, err := w.Import(context.Background(), "inside.csv")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rec.RowCount != 2 {
		t.Errorf("row count: got %d", rec.RowCount)
	}
}

func TestImportWorker_StoreErrorIsRetryable(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	src := memory.New(core.RawTable{Columns: []string{"amount"}, Rows: []core.RawRecord{{"amount": "1"}}})
	w := NewImportWorker(store, func(string) sources.Source { return src }, "", nil)

	_, err := w.Import(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, amqp.ErrPermanent) {
		t.Error("store failures should be retried")
	}
}
