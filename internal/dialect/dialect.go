// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dialect enumerates the SQL dialects the agent can target and
// provides detection from connection-string schemes.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect identifies a SQL dialect.
type Dialect string

const (
	MySQL      Dialect = "mysql"
	PostgreSQL Dialect = "postgresql"
	SQLite     Dialect = "sqlite"
	SQLServer  Dialect = "sqlserver"
	Oracle     Dialect = "oracle"
	Unknown    Dialect = "unknown"
)

// All returns every supported dialect.
func All() []Dialect {
	return []Dialect{MySQL, PostgreSQL, SQLite, SQLServer, Oracle}
}

// String returns the canonical lowercase name.
func (d Dialect) String() string { return string(d) }

// DisplayName returns the human-facing name used in prompts and output.
func (d Dialect) DisplayName() string {
	switch d {
	case MySQL:
		return "MySQL"
	case PostgreSQL:
		return "PostgreSQL"
	case SQLite:
		return "SQLite"
	case SQLServer:
		return "SQL Server"
	case Oracle:
		return "Oracle"
	}
	return "Unknown"
}

// Parse converts user input (flag value, config entry) into a Dialect.
func Parse(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return PostgreSQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql", "sql server":
		return SQLServer, nil
	case "oracle":
		return Oracle, nil
	}
	return Unknown, fmt.Errorf("unsupported SQL dialect: %q", s)
}

// Detect infers the dialect from a DSN scheme (e.g. "postgres://...").
// Returns Unknown when the scheme is not recognized.
func Detect(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return PostgreSQL
	case strings.HasPrefix(lower, "mysql://"):
		return MySQL
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return SQLite
	case strings.HasPrefix(lower, "sqlserver://"), strings.HasPrefix(lower, "mssql://"):
		return SQLServer
	case strings.HasPrefix(lower, "oracle://"):
		return Oracle
	}
	return Unknown
}
