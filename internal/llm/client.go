// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/gateway"
)

// Client implements Collaborator over an OpenAI-compatible chat endpoint.
type Client struct {
	model       llms.Model
	logger      *zap.Logger
	temperature float64
}

// NewClient builds a collaborator client from model configuration.
func NewClient(cfg config.ModelConfig, apiKey string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Name),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(errors.CollaboratorFailed, "initialize model client", err)
	}
	return &Client{model: model, logger: logger, temperature: cfg.Temperature}, nil
}

// complete runs one prompt through the model.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(c.temperature))
	if err != nil {
		return "", errors.Wrap(errors.CollaboratorFailed, "model call failed", err)
	}
	return out, nil
}

// completeJSON runs a prompt and decodes the model's JSON object reply into v.
func (c *Client) completeJSON(ctx context.Context, prompt string, v any) error {
	out, err := c.complete(ctx, prompt)
	if err != nil {
		return err
	}
	raw, err := extractJSON(out)
	if err != nil {
		c.logger.Debug("malformed model output", zap.String("output", out))
		return errors.Wrap(errors.CollaboratorFailed, "model returned malformed output", err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.Wrap(errors.CollaboratorFailed, "model returned malformed output", err)
	}
	return nil
}

// GenerateSQL implements Collaborator.
func (c *Client) GenerateSQL(ctx context.Context, question string, d dialect.Dialect, schemaContext string) (SQLQuery, error) {
	prompt := fmt.Sprintf(`You are an expert SQL developer. Generate a single %s statement answering the question below.

DATABASE SCHEMA:
%s

RULES:
1. Use only tables and columns that exist in the schema.
2. Use proper %s syntax.
3. For aggregations, always include GROUP BY.
4. Use appropriate JOINs when accessing multiple tables.

Question: %s

Reply with one JSON object only: {"query": "...", "explanation": "..."}`,
		d.DisplayName(), schemaContext, d.DisplayName(), question)

	var q SQLQuery
	if err := c.completeJSON(ctx, prompt, &q); err != nil {
		return SQLQuery{}, err
	}
	if q.Query == "" {
		return SQLQuery{}, errors.New(errors.CollaboratorFailed, "model produced an empty statement")
	}
	c.logger.Debug("generated sql", zap.String("query", q.Query))
	return q, nil
}

// JudgeSemanticMatch implements Collaborator.
func (c *Client) JudgeSemanticMatch(ctx context.Context, question, sql string, result *gateway.Result) (Judgment, error) {
	prompt := fmt.Sprintf(`You are a SQL result validator. Analyze whether the query results properly answer the user's question.

Check for:
1. Empty results when data was expected.
2. Incorrect aggregations.
3. Missing columns that should be present.
4. Data that does not make sense for the question.

User question: %s
SQL query: %s
Results (first 5 rows): %s
Row count: %d

Reply with one JSON object only: {"is_valid": true|false, "issues": [...], "suggestions": [...]}`,
		question, sql, previewRows(result, 5), result.RowCount())

	var j Judgment
	if err := c.completeJSON(ctx, prompt, &j); err != nil {
		return Judgment{}, err
	}
	return j, nil
}

// DiagnoseAndCorrect implements Collaborator.
func (c *Client) DiagnoseAndCorrect(ctx context.Context, question string, d dialect.Dialect, sql, schemaContext, errorContext string) (Correction, error) {
	prompt := fmt.Sprintf(`You are an expert SQL debugger. Analyze the failed query and provide a corrected version.

DATABASE DIALECT: %s

DATABASE SCHEMA:
%s

ORIGINAL QUERY:
%s

ERRORS:
%s

The corrected query must answer: %s

Reply with one JSON object only: {"root_cause": "...", "corrected_query": "...", "changes_made": [...]}`,
		d.DisplayName(), schemaContext, sql, errorContext, question)

	var corr Correction
	if err := c.completeJSON(ctx, prompt, &corr); err != nil {
		return Correction{}, err
	}
	if corr.CorrectedQuery == "" {
		return Correction{}, errors.New(errors.CollaboratorFailed, "model produced no corrected statement")
	}
	return corr, nil
}

// RenderAnswer implements Collaborator.
func (c *Client) RenderAnswer(ctx context.Context, question, sql string, result *gateway.Result) (string, error) {
	prompt := fmt.Sprintf(`You are a data analyst. Convert the SQL results into a clear, natural language answer.
Include key insights and numbers from the data.

Question: %s
SQL used: %s
Results: %s
Total rows: %d

Provide a comprehensive answer in plain text.`,
		question, sql, previewRows(result, 20), result.RowCount())

	return c.complete(ctx, prompt)
}

// previewRows serializes up to n rows for inclusion in a prompt.
func previewRows(result *gateway.Result, n int) string {
	rows := result.Rows
	if len(rows) > n {
		rows = rows[:n]
	}
	b, err := json.Marshal(map[string]any{
		"columns": result.Columns,
		"rows":    rows,
	})
	if err != nil {
		return "[]"
	}
	return string(b)
}
