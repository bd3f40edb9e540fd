package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
)

// ErrStatementRejected is returned by Dataset.Query when the SQL guard
// refuses a statement.
var ErrStatementRejected = errors.New("statement rejected")

// Dataset is one read-only SQLite table exposed to the NL->SQL chain. Every
// statement the chain runs passes the SQL guard first, and only the bound
// table is visible.
type Dataset struct {
	Key   string
	Table string
	DB    *sql.DB

	guard *guard.SQLGuard
	log   *observability.Logger
}

var _ sqldatabase.Engine = (*Dataset)(nil)

// OpenDataset opens an existing SQLite file in query-only mode and checks
// that table exists.
func OpenDataset(ctx context.Context, key, path, table string, g *guard.SQLGuard, log *observability.Logger) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", key, err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", key, err)
	}

	d := NewDataset(db, key, table, g, log)
	if _, err := d.TableNames(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// NewDataset wraps an open database. A nil guard selects the default SQL
// guard.
func NewDataset(db *sql.DB, key, table string, g *guard.SQLGuard, log *observability.Logger) *Dataset {
	if g == nil {
		g = guard.NewSQLGuard(nil)
	}
	if log == nil {
		log = observability.Nop()
	}
	return &Dataset{Key: key, Table: table, DB: db, guard: g, log: log}
}

func (d *Dataset) Dialect() string {
	return "sqlite"
}

// Query runs a guarded statement. A single trailing semicolon is dropped
// before the guard sees the text.
func (d *Dataset) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	stmt := trimStatement(query)

	v := d.guard.Check(stmt, []string{d.Table})
	d.log.LogSQL(ctx, d.Key, stmt, v.Allowed(), v.Reason)
	if !v.Allowed() {
		return nil, nil, fmt.Errorf("%w: %s", ErrStatementRejected, v.Reason)
	}

	rows, err := d.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", d.Key, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", d.Key, err)
	}

	var results [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", d.Key, err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", d.Key, err)
	}
	return cols, results, nil
}

// TableNames reports the bound table only, failing if it does not exist.
func (d *Dataset) TableNames(ctx context.Context) ([]string, error) {
	var name string
	err := d.DB.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, d.Table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: table %q not found", d.Key, d.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Key, err)
	}
	return []string{name}, nil
}

// TableInfo returns the CREATE TABLE statement of the bound table.
func (d *Dataset) TableInfo(ctx context.Context, table string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(table), d.Table) {
		return "", fmt.Errorf("dataset %s: table %q is not allow-listed", d.Key, table)
	}
	var ddl string
	err := d.DB.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, d.Table).Scan(&ddl)
	if err != nil {
		return "", fmt.Errorf("dataset %s: table info: %w", d.Key, err)
	}
	return ddl, nil
}

func (d *Dataset) Close() error {
	return d.DB.Close()
}

func trimStatement(query string) string {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSuffix(stmt, ";")
	return strings.TrimSpace(stmt)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
