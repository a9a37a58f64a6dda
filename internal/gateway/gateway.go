// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway abstracts SQL execution for the agent pipeline. A Gateway
// runs one statement against a live database and returns either a normalized
// Result or a typed failure: recoverable failures (syntax errors, missing
// columns, constraint violations, transient connection drops) feed the debug
// loop, fatal failures (authorization, unreachable database) terminate the
// request.
//
// Implementations exist for PostgreSQL (pgx connection pool) and SQLite
// (database/sql over the modernc driver). Both also expose a human-readable
// schema summary used as planner context.
package gateway

import (
	"context"
	"fmt"

	"sqlpilot/cli/internal/dialect"
)

// Result represents a normalized SQL result.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// RowsAffected is the mutation row count. Valid only when HasRowsAffected
	// is set; read statements leave it unset.
	RowsAffected    int64 `json:"rows_affected,omitempty"`
	HasRowsAffected bool  `json:"-"`
}

// RowCount returns the number of rows returned or affected.
func (r *Result) RowCount() int64 {
	if r.HasRowsAffected {
		return r.RowsAffected
	}
	return int64(len(r.Rows))
}

// Gateway executes SQL statements against one database.
type Gateway interface {
	// Execute runs a single statement with optional bound parameters.
	// Failures are returned as *errors.E with kind ExecRecoverable or ExecFatal.
	Execute(ctx context.Context, sql string, params ...any) (*Result, error)

	// Schema returns a human-readable summary of tables, columns, and keys,
	// suitable for inclusion in a planner prompt.
	Schema(ctx context.Context) (string, error)

	// Dialect identifies the SQL dialect this gateway speaks.
	Dialect() dialect.Dialect

	// Close releases the underlying connections.
	Close()
}

// normalizeValue converts driver-specific row values into plain Go values that
// survive JSON serialization. UUIDs surface as their canonical string form,
// other byte slices as hex.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case []byte:
		if len(v) == 16 {
			return formatUUID(v)
		}
		return fmt.Sprintf("\\x%x", v)
	case [16]byte:
		return formatUUID(v[:])
	default:
		return v
	}
}

// formatUUID renders 16 bytes as xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
// %02x keeps each byte exactly two hex digits.
func formatUUID(v []byte) string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7],
		v[8], v[9], v[10], v[11], v[12], v[13], v[14], v[15])
}
