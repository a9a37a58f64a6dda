// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // CGO-free sqlite driver

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/sqlparse"
)

// SQLite executes SQL against a SQLite database file. It is the zero-config
// default gateway: no server, no credentials.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ExecFatal, "open sqlite database", err)
	}
	return &SQLite{db: db}, nil
}

// Dialect implements Gateway.
func (g *SQLite) Dialect() dialect.Dialect { return dialect.SQLite }

// Close implements Gateway.
func (g *SQLite) Close() { _ = g.db.Close() }

// Execute runs a single statement. Writes go through ExecContext for the
// affected-row count; reads scan every row into normalized values.
func (g *SQLite) Execute(ctx context.Context, sqlText string, params ...any) (*Result, error) {
	if sqlparse.IsWrite(sqlText) {
		res, err := g.db.ExecContext(ctx, sqlText, params...)
		if err != nil {
			return nil, classifySQLiteError("execute statement", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &Result{
			Columns:         []string{},
			Rows:            [][]any{},
			RowsAffected:    affected,
			HasRowsAffected: true,
		}, nil
	}

	rows, err := g.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, classifySQLiteError("execute query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classifySQLiteError("read columns", err)
	}

	out := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, classifySQLiteError("read row", err)
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLiteError("read rows", err)
	}
	return out, nil
}

// classifySQLiteError maps driver errors onto the pipeline's taxonomy.
// SQLite reports statement problems as text; anything naming a missing
// object, a syntax problem, or a constraint is correctable by the debug
// loop. Authorization and unopenable databases are not.
func classifySQLiteError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not authorized"), strings.Contains(msg, "unable to open"):
		return errors.Wrap(errors.ExecFatal, op+" failed", err)
	case strings.Contains(msg, "syntax error"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "no such function"),
		strings.Contains(msg, "constraint"),
		strings.Contains(msg, "ambiguous column"),
		strings.Contains(msg, "datatype mismatch"):
		return errors.Wrap(errors.ExecRecoverable, op+" failed", err)
	}
	return errors.Wrap(errors.ExecRecoverable, op+" failed", err)
}

// Schema returns a readable summary built from sqlite_master and table_info.
func (g *SQLite) Schema(ctx context.Context) (string, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", classifySQLiteError("introspect schema", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", classifySQLiteError("introspect schema", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", classifySQLiteError("introspect schema", err)
	}

	var b strings.Builder
	for _, name := range names {
		cols, err := g.tableColumns(ctx, name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Table %s:\n%s\n", name, strings.Join(cols, "\n"))
	}
	return b.String(), nil
}

// tableColumns lists "  name type [PRIMARY KEY]" lines for one table.
func (g *SQLite) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, classifySQLiteError("introspect table", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, classifySQLiteError("introspect table", err)
		}
		line := fmt.Sprintf("  %s %s", name, ctype)
		if pk > 0 {
			line += " PRIMARY KEY"
		}
		cols = append(cols, line)
	}
	return cols, rows.Err()
}
