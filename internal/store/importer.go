package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NormalizeColumn lower-cases a CSV header and replaces spaces with
// underscores.
func NormalizeColumn(header string) string {
	return strings.ReplaceAll(strings.ToLower(header), " ", "_")
}

// normalizeHeaders names blank headers "Unnamed: N" and suffixes repeats
// with ".N" before normalizing, so every column gets a distinct name.
func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := NormalizeColumn(h)
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

type columnType string

const (
	typeInteger columnType = "INTEGER"
	typeReal    columnType = "REAL"
	typeText    columnType = "TEXT"
)

func inferTypes(cols int, records [][]string) []columnType {
	types := make([]columnType, cols)
	for c := 0; c < cols; c++ {
		isInt, isReal, seen := true, true, false
		for _, rec := range records {
			v := strings.TrimSpace(rec[c])
			if v == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isReal = false
			}
			if !isInt && !isReal {
				break
			}
		}
		switch {
		case !seen:
			types[c] = typeText
		case isInt:
			types[c] = typeInteger
		case isReal:
			types[c] = typeReal
		default:
			types[c] = typeText
		}
	}
	return types
}

func convert(v string, t columnType) any {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	switch t {
	case typeInteger:
		n, _ := strconv.ParseInt(trimmed, 10, 64)
		return n
	case typeReal:
		f, _ := strconv.ParseFloat(trimmed, 64)
		return f
	default:
		return v
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ImportCSV replaces table in db with the contents of r and returns the
// number of rows written. The whole import runs in one transaction.
func ImportCSV(ctx context.Context, db *sql.DB, table string, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("import %s: empty csv", table)
	}
	if err != nil {
		return 0, fmt.Errorf("import %s: read header: %w", table, err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("import %s: read rows: %w", table, err)
	}

	cols := normalizeHeaders(headers)
	types := inferTypes(len(cols), records)

	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		defs[i] = quoted[i] + " " + string(types[i])
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(table)),
		fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(table), strings.Join(defs, ", ")),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("import %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	defer insert.Close()

	args := make([]any, len(cols))
	for _, rec := range records {
		for i := range cols {
			args[i] = convert(rec[i], types[i])
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("import %s: insert: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import %s: commit: %w", table, err)
	}
	return len(records), nil
}

// ImportFile converts csvPath into table inside the SQLite file dbPath,
// creating the file and its directory as needed.
func ImportFile(ctx context.Context, csvPath, dbPath, table string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", table, err)
	}
	defer db.Close()

	return ImportCSV(ctx, db, table, f)
}
