// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/sqlparse"
)

// validate checks the execution result in two stages: cheap structural checks
// first, then a semantic judgment by the model collaborator. A structural
// failure short-circuits; the collaborator is never consulted for it.
func (o *Orchestrator) validate(ctx context.Context, req *Request) Decision {
	if msg := quickCheck(req); msg != "" {
		req.Validation = ValidationQuickFailed
		req.recordFailure(string(NodeValidate), errors.ValidationQuick, msg)
		o.logger.Debug("quick validation failed",
			zap.String("request_id", req.ID), zap.String("reason", msg))
		return DecisionInvalid
	}

	j, err := o.collab.JudgeSemanticMatch(ctx, req.Question, req.CurrentSQL, req.Result)
	if err != nil {
		req.recordFailure(string(NodeValidate), errors.CollaboratorFailed, err.Error())
		req.fail("semantic validation unavailable: " + err.Error())
		return DecisionFatal
	}
	if !j.Valid {
		req.Validation = ValidationSemanticFailed
		msg := "result does not answer the question"
		if len(j.Issues) > 0 {
			msg = strings.Join(j.Issues, "; ")
		}
		req.recordFailure(string(NodeValidate), errors.ValidationSemantic, msg)
		return DecisionInvalid
	}

	req.Validation = ValidationValid
	return DecisionValid
}

// quickCheck returns an empty string when the result is structurally sound.
func quickCheck(req *Request) string {
	res := req.Result
	if res == nil {
		return "execution produced no result"
	}
	if sqlparse.IsWrite(req.CurrentSQL) {
		if !res.HasRowsAffected {
			return "mutation reported no affected-row count"
		}
		return ""
	}
	for i, row := range res.Rows {
		if len(row) != len(res.Columns) {
			return fmt.Sprintf("row %d has %d values for %d columns",
				i, len(row), len(res.Columns))
		}
	}
	return ""
}
