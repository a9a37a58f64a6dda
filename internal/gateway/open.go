// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"context"

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/errors"
)

// Open constructs the Gateway for a dialect. The DSN is a connection string
// for server databases and a file path for SQLite. Dialects without a wired
// driver are reported as fatal so the pipeline never enters the debug loop
// for them.
func Open(ctx context.Context, d dialect.Dialect, dsn string) (Gateway, error) {
	switch d {
	case dialect.PostgreSQL:
		return NewPostgres(ctx, dsn)
	case dialect.SQLite:
		return NewSQLite(dsn)
	}
	return nil, errors.New(errors.ExecFatal, "unsupported dialect: "+d.DisplayName())
}
