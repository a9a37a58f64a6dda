// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package llm defines the model-collaborator contract the pipeline depends on
// and a langchaingo-backed client that fulfills it against any OpenAI-compatible
// endpoint. The pipeline only ever sees the Collaborator interface, so tests
// and alternative providers plug in without touching the nodes.
//
// Sensitivity classification is deliberately not part of this interface: it is
// rule-based (internal/sqlparse) because the statement families that require
// approval are enumerable and a model round-trip buys nothing.
package llm

import (
	"context"

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/gateway"
)

// SQLQuery is the planner's structured output.
type SQLQuery struct {
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
}

// Judgment is the semantic validator's structured output.
type Judgment struct {
	Valid       bool     `json:"is_valid"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Correction is the debugger's structured output.
type Correction struct {
	RootCause      string   `json:"root_cause"`
	CorrectedQuery string   `json:"corrected_query"`
	Changes        []string `json:"changes_made"`
}

// Collaborator is the set of model capabilities the pipeline consumes.
// Every method may fail; such failures surface as CollaboratorFailed and are
// fatal for the current request.
type Collaborator interface {
	// GenerateSQL produces a candidate statement for the question.
	GenerateSQL(ctx context.Context, question string, d dialect.Dialect, schemaContext string) (SQLQuery, error)

	// JudgeSemanticMatch decides whether the result plausibly answers the
	// question given the statement that produced it.
	JudgeSemanticMatch(ctx context.Context, question, sql string, result *gateway.Result) (Judgment, error)

	// DiagnoseAndCorrect derives a root cause from the error context and
	// returns a corrected statement.
	DiagnoseAndCorrect(ctx context.Context, question string, d dialect.Dialect, sql, schemaContext, errorContext string) (Correction, error)

	// RenderAnswer turns validated rows into a natural-language answer.
	RenderAnswer(ctx context.Context, question, sql string, result *gateway.Result) (string, error)
}
