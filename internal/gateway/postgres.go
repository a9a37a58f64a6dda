// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/sqlparse"
)

// connectAttempts bounds the gateway's own retry on transient connection
// failures; once exhausted the failure is reported as fatal.
const connectAttempts = 3

// Postgres executes SQL against a PostgreSQL database using a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool for the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ExecFatal, "invalid PostgreSQL configuration", err)
	}
	return &Postgres{pool: pool}, nil
}

// Dialect implements Gateway.
func (g *Postgres) Dialect() dialect.Dialect { return dialect.PostgreSQL }

// Close implements Gateway.
func (g *Postgres) Close() { g.pool.Close() }

// Execute runs a single statement. Write statements run inside a transaction
// so a failed mutation never half-commits; read statements stream rows into
// the Result with driver values normalized for rendering and caching.
func (g *Postgres) Execute(ctx context.Context, sql string, params ...any) (*Result, error) {
	conn, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if sqlparse.IsWrite(sql) {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return nil, classifyPostgresError("begin transaction", err)
		}
		defer tx.Rollback(ctx) // no-op after commit

		ct, err := tx.Exec(ctx, sql, params...)
		if err != nil {
			return nil, classifyPostgresError("execute statement", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, classifyPostgresError("commit", err)
		}
		return &Result{
			Columns:         []string{},
			Rows:            [][]any{},
			RowsAffected:    ct.RowsAffected(),
			HasRowsAffected: true,
		}, nil
	}

	rows, err := conn.Query(ctx, sql, params...)
	if err != nil {
		return nil, classifyPostgresError("execute query", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = string(fd.Name)
	}

	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, classifyPostgresError("read row", err)
		}
		normalized := make([]any, len(vals))
		for i, v := range vals {
			normalized[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, normalized)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgresError("read rows", err)
	}
	return res, nil
}

// acquire obtains a pooled connection, retrying transient failures a bounded
// number of times before declaring the gateway unavailable.
func (g *Postgres) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		conn, err := g.pool.Acquire(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if !isTransientNetErr(err) {
			return nil, classifyPostgresError("acquire connection", err)
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ExecFatal, "canceled while connecting", ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return nil, errors.Wrap(errors.ExecFatal, "database unreachable after retries", lastErr)
}

// classifyPostgresError maps a pgx error onto the pipeline's taxonomy.
// SQLSTATE class 28 (auth), 3D (unknown database), and 42501 (insufficient
// privilege) cannot be fixed by rewriting the statement; syntax, unknown
// relation/column, constraint, and data errors can.
func classifyPostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case strings.HasPrefix(code, "28"), code == "42501", strings.HasPrefix(code, "3D"):
			return errors.Wrap(errors.ExecFatal, "not authorized: "+op, err)
		case strings.HasPrefix(code, "42"), strings.HasPrefix(code, "23"), strings.HasPrefix(code, "22"):
			return errors.Wrap(errors.ExecRecoverable, op+" failed", err)
		}
		return errors.Wrap(errors.ExecRecoverable, op+" failed", err)
	}
	if isTransientNetErr(err) {
		return errors.Wrap(errors.ExecRecoverable, "transient connection failure: "+op, err)
	}
	return errors.Wrap(errors.ExecFatal, op+" failed", err)
}

// isTransientNetErr reports whether err looks like a connection-level failure
// worth retrying.
func isTransientNetErr(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected EOF")
}

// Schema returns a readable summary of the public schema: one block per table
// with columns, types, and primary-key markers, plus foreign-key references.
func (g *Postgres) Schema(ctx context.Context) (string, error) {
	conn, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	const colQuery = `
		SELECT c.table_name, c.column_name, c.data_type,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kc
		             ON tc.constraint_name = kc.constraint_name
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_name = c.table_name
		             AND kc.column_name = c.column_name
		       ) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = 'public'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := conn.Query(ctx, colQuery)
	if err != nil {
		return "", classifyPostgresError("introspect schema", err)
	}
	defer rows.Close()

	tables := map[string][]string{}
	for rows.Next() {
		var table, column, dataType string
		var isPK bool
		if err := rows.Scan(&table, &column, &dataType, &isPK); err != nil {
			return "", classifyPostgresError("introspect schema", err)
		}
		line := fmt.Sprintf("  %s %s", column, dataType)
		if isPK {
			line += " PRIMARY KEY"
		}
		tables[table] = append(tables[table], line)
	}
	if err := rows.Err(); err != nil {
		return "", classifyPostgresError("introspect schema", err)
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "Table %s:\n%s\n", name, strings.Join(tables[name], "\n"))
	}
	return b.String(), nil
}
