// Package csvfile reads the transaction dataset from a CSV file with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"txdash/internal/core"
	"txdash/internal/sources"
)

var ErrEmptyHeader = errors.New("csv: missing header row")

type Source struct {
	path string
}

var _ sources.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Name() string {
	return "csv:" + s.path
}

// Load opens the file and parses it.
func (s *Source) Load(ctx context.Context) (core.RawTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open dataset %s: %w", s.path, err)
	}
	defer f.Close()

	table, err := Parse(ctx, f)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("parse dataset %s: %w", s.path, err)
	}
	return table, nil
}

// Parse reads a header row followed by records. Empty cells and cells beyond
// the end of a short record are missing values; extra cells are ignored.
func Parse(ctx context.Context, r io.Reader) (core.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return core.RawTable{}, ErrEmptyHeader
	}
	if err != nil {
		return core.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = h
	}
	if len(columns) == 1 && columns[0] == "" {
		return core.RawTable{}, ErrEmptyHeader
	}

	table := core.RawTable{Columns: columns}
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return core.RawTable{}, err
			}
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.RawTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(core.RawRecord, len(columns))
		for i, col := range columns {
			if i >= len(rec) || col == "" {
				continue
			}
			if v := strings.TrimSpace(rec[i]); v != "" {
				row[col] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Write emits table as CSV with its header. Missing values become empty cells.
func Write(w io.Writer, table core.RawTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	rec := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			rec[i] = row[col]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
