// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	stderrors "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"sqlpilot/cli/internal/errors"
)

func TestClassifyPostgresError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want errors.Kind
	}{
		{name: "syntax error", code: "42601", want: errors.ExecRecoverable},
		{name: "undefined table", code: "42P01", want: errors.ExecRecoverable},
		{name: "undefined column", code: "42703", want: errors.ExecRecoverable},
		{name: "unique violation", code: "23505", want: errors.ExecRecoverable},
		{name: "data exception", code: "22012", want: errors.ExecRecoverable},
		{name: "invalid password", code: "28P01", want: errors.ExecFatal},
		{name: "insufficient privilege", code: "42501", want: errors.ExecFatal},
		{name: "unknown database", code: "3D000", want: errors.ExecFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPostgresError("execute", &pgconn.PgError{Code: tt.code, Message: tt.name})
			if got := errors.GetKind(err); got != tt.want {
				t.Errorf("classifyPostgresError(code %s) kind = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want errors.Kind
	}{
		{name: "missing table", msg: "SQL logic error: no such table: users", want: errors.ExecRecoverable},
		{name: "missing column", msg: "no such column: revnue", want: errors.ExecRecoverable},
		{name: "syntax", msg: "near \"FORM\": syntax error", want: errors.ExecRecoverable},
		{name: "constraint", msg: "UNIQUE constraint failed: users.email", want: errors.ExecRecoverable},
		{name: "auth", msg: "not authorized", want: errors.ExecFatal},
		{name: "unopenable", msg: "unable to open database file", want: errors.ExecFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifySQLiteError("execute", stderrors.New(tt.msg))
			if got := errors.GetKind(err); got != tt.want {
				t.Errorf("classifySQLiteError(%q) kind = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestResultRowCount(t *testing.T) {
	read := &Result{Columns: []string{"n"}, Rows: [][]any{{1}, {2}}}
	if got := read.RowCount(); got != 2 {
		t.Errorf("RowCount() = %d, want 2", got)
	}
	write := &Result{RowsAffected: 7, HasRowsAffected: true}
	if got := write.RowCount(); got != 7 {
		t.Errorf("RowCount() = %d, want 7", got)
	}
}
