// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlparse provides lightweight SQL statement analysis for the agent
// pipeline: normalization for cache fingerprinting, sensitivity classification
// for the approval gate, and write detection for result validation.
//
// It is intentionally not a full SQL parser. Classification works on keywords
// after comment stripping, which is sufficient for gating statements generated
// by the planner, and errs on the side of flagging a statement as sensitive.
package sqlparse

import (
	"regexp"
	"strings"
)

var (
	reLineComment  = regexp.MustCompile(`--[^\n]*`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reWhitespace   = regexp.MustCompile(`\s+`)

	// Statement families that mutate data or schema and therefore require
	// human approval before execution.
	reSensitive = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate|create|replace|merge|grant|revoke)\b`)

	// Write statements are expected to report an affected-row count.
	reWrite = regexp.MustCompile(`(?i)^\s*(insert|update|delete|replace|merge|create|drop|alter|truncate)\b`)
)

// StripComments removes line and block comments from a statement.
func StripComments(sql string) string {
	out := reBlockComment.ReplaceAllString(sql, " ")
	out = reLineComment.ReplaceAllString(out, " ")
	return out
}

// Normalize produces the canonical form of a statement used for cache
// fingerprinting: comments removed, whitespace collapsed, lowercased, and a
// trailing semicolon dropped. Two statements that normalize identically are
// treated as the same query by the cache.
func Normalize(sql string) string {
	out := StripComments(sql)
	out = strings.ToLower(strings.TrimSpace(out))
	out = reWhitespace.ReplaceAllString(out, " ")
	out = strings.TrimSuffix(out, ";")
	return strings.TrimSpace(out)
}

// IsSensitive reports whether a statement mutates data or schema
// (INSERT/UPDATE/DELETE/DROP/ALTER/TRUNCATE family). Read-only statements are
// never sensitive. The scan covers the whole statement, not just the leading
// keyword, so a CTE that feeds a DELETE is still flagged.
func IsSensitive(sql string) bool {
	return reSensitive.MatchString(StripComments(sql))
}

// IsWrite reports whether the statement's leading keyword is a mutation.
// Unlike IsSensitive it ignores mutating keywords in subclauses; it answers
// "should this statement report rows affected instead of a row set".
func IsWrite(sql string) bool {
	stripped := strings.TrimSpace(StripComments(sql))
	if reWrite.MatchString(stripped) {
		return true
	}
	// WITH ... INSERT/UPDATE/DELETE: the first keyword is WITH but the
	// top-level statement still mutates.
	if strings.HasPrefix(strings.ToLower(stripped), "with") {
		return reSensitive.MatchString(stripped)
	}
	return false
}
