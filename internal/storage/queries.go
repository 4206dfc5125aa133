package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"txdash/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// StoredColumns are the dataset columns persisted per transaction, in table order.
var StoredColumns = func() []string {
	cols := []string{core.ColCreationDate, core.ColAmount, core.ColAcquirerResponse}
	for _, d := range core.CategoricalDimensions() {
		cols = append(cols, d.String())
	}
	return cols
}()

func quotedColumns() string {
	quoted := make([]string, len(StoredColumns))
	for i, c := range StoredColumns {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

var (
	insertTransaction = `INSERT INTO transactions (import_id, ` + quotedColumns() + `) VALUES (?` +
		strings.Repeat(", ?", len(StoredColumns)) + `)`
	listTransactions = `SELECT ` + quotedColumns() + ` FROM transactions WHERE import_id = ? ORDER BY id`
)

type Import struct {
	ID         string
	Source     string
	Columns    string
	RowCount   int64
	ImportedAt time.Time
}

type CreateImportParams struct {
	ID         string
	Source     string
	Columns    string
	RowCount   int64
	ImportedAt time.Time
}

const createImport = `INSERT INTO imports (id, source, columns, row_count, imported_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateImport(ctx context.Context, arg CreateImportParams) error {
	_, err := q.db.ExecContext(ctx, createImport, arg.ID, arg.Source, arg.Columns, arg.RowCount, arg.ImportedAt)
	return err
}

const getLatestImport = `SELECT id, source, columns, row_count, imported_at FROM imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`

func (q *Queries) GetLatestImport(ctx context.Context) (Import, error) {
	row := q.db.QueryRowContext(ctx, getLatestImport)
	var i Import
	err := row.Scan(&i.ID, &i.Source, &i.Columns, &i.RowCount, &i.ImportedAt)
	return i, err
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const deleteAllImports = `DELETE FROM imports`

func (q *Queries) DeleteAllImports(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllImports)
	return err
}

// PrepareInsertTransaction returns a statement taking the import id followed
// by one nullable value per stored column.
func (q *Queries) PrepareInsertTransaction(ctx context.Context) (*sql.Stmt, error) {
	return q.db.PrepareContext(ctx, insertTransaction)
}

// ListTransactions returns the stored cells of every row of an import.
// NULL cells come back as invalid NullStrings.
func (q *Queries) ListTransactions(ctx context.Context, importID string) ([][]sql.NullString, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items [][]sql.NullString
	for rows.Next() {
		cells := make([]sql.NullString, len(StoredColumns))
		dest := make([]interface{}, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, cells)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
