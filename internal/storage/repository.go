package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"txdash/internal/core"
	"txdash/internal/sources"

	_ "modernc.org/sqlite"
)

// ErrNoImport is returned when the database holds no dataset yet.
var ErrNoImport = errors.New("no dataset imported")

// ImportRecord describes one stored dataset.
type ImportRecord struct {
	ID         string
	Source     string
	Columns    []string
	RowCount   int
	ImportedAt time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ sources.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// ReplaceDataset stores table as the only dataset, in a single transaction.
// Columns outside StoredColumns are not persisted.
func (r *SQLiteRepository) ReplaceDataset(ctx context.Context, source string, table core.RawTable) (ImportRecord, error) {
	rec := ImportRecord{
		ID:         uuid.NewString(),
		Source:     source,
		Columns:    storedSubset(table.Columns),
		RowCount:   len(table.Rows),
		ImportedAt: r.now().UTC(),
	}
	cols, err := json.Marshal(rec.Columns)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("encode columns: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllTransactions(ctx); err != nil {
		return ImportRecord{}, fmt.Errorf("clear transactions: %w", err)
	}
	if err := q.DeleteAllImports(ctx); err != nil {
		return ImportRecord{}, fmt.Errorf("clear imports: %w", err)
	}
	if err := q.CreateImport(ctx, CreateImportParams{
		ID:         rec.ID,
		Source:     rec.Source,
		Columns:    string(cols),
		RowCount:   int64(rec.RowCount),
		ImportedAt: rec.ImportedAt,
	}); err != nil {
		return ImportRecord{}, fmt.Errorf("create import: %w", err)
	}

	stmt, err := q.PrepareInsertTransaction(ctx)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(StoredColumns)+1)
	args[0] = rec.ID
	for i, row := range table.Rows {
		for j, col := range StoredColumns {
			if v, ok := row.Get(col); ok {
				args[j+1] = v
			} else {
				args[j+1] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return ImportRecord{}, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportRecord{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Dataset stored in SQLite",
		"import_id", rec.ID,
		"source", rec.Source,
		"rows", rec.RowCount,
		"columns", len(rec.Columns))

	return rec, nil
}

// LatestImport returns the metadata of the stored dataset.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (ImportRecord, error) {
	imp, err := r.queries.GetLatestImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRecord{}, ErrNoImport
	}
	if err != nil {
		return ImportRecord{}, fmt.Errorf("get latest import: %w", err)
	}
	var cols []string
	if err := json.Unmarshal([]byte(imp.Columns), &cols); err != nil {
		return ImportRecord{}, fmt.Errorf("decode columns of import %s: %w", imp.ID, err)
	}
	return ImportRecord{
		ID:         imp.ID,
		Source:     imp.Source,
		Columns:    cols,
		RowCount:   int(imp.RowCount),
		ImportedAt: imp.ImportedAt,
	}, nil
}

// Load implements sources.Source by reading the latest import back as a raw table.
func (r *SQLiteRepository) Load(ctx context.Context) (core.RawTable, error) {
	return r.LoadDataset(ctx)
}

// LoadDataset returns the stored dataset with the header it was imported with.
func (r *SQLiteRepository) LoadDataset(ctx context.Context) (core.RawTable, error) {
	rec, err := r.LatestImport(ctx)
	if err != nil {
		return core.RawTable{}, err
	}
	rows, err := r.queries.ListTransactions(ctx, rec.ID)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("list transactions: %w", err)
	}

	table := core.RawTable{Columns: rec.Columns, Rows: make([]core.RawRecord, 0, len(rows))}
	for _, cells := range rows {
		row := make(core.RawRecord, len(StoredColumns))
		for i, c := range cells {
			if c.Valid {
				row[StoredColumns[i]] = c.String
			}
		}
		table.Rows = append(table.Rows, row)
	}

	slog.DebugContext(ctx, "Dataset loaded from SQLite", "import_id", rec.ID, "rows", len(table.Rows))
	return table, nil
}

func storedSubset(columns []string) []string {
	stored := make(map[string]bool, len(StoredColumns))
	for _, c := range StoredColumns {
		stored[c] = true
	}
	out := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if stored[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
