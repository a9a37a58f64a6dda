// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
)

// debug consumes one unit of the retry budget and asks the collaborator for a
// corrected statement. The budget check happens before any correction work,
// so a request arriving with an exhausted budget terminates immediately and
// its retry count never exceeds the configured maximum.
func (o *Orchestrator) debug(ctx context.Context, req *Request) Decision {
	if req.RetryCount >= req.MaxRetries {
		last := "unknown error"
		if f := req.lastFailure(); f != nil {
			last = f.Message
		}
		req.recordBudgetExhausted(last)
		return DecisionBudgetSpent
	}
	req.RetryCount++

	last := req.lastFailure()
	if last == nil {
		// Unreachable through the dispatch table; every path into this
		// node records a failure first.
		req.fail("debugger invoked without a recorded failure")
		return DecisionFatal
	}
	errCtx := fmt.Sprintf("[%s] %s", last.Stage, last.Message)

	c, err := o.collab.DiagnoseAndCorrect(ctx, req.Question, req.Dialect,
		req.CurrentSQL, req.SchemaContext, errCtx)
	if err != nil {
		req.recordFailure(string(NodeDebug), errors.CollaboratorFailed, err.Error())
		req.fail("diagnosis unavailable: " + err.Error())
		return DecisionFatal
	}

	o.logger.Info("statement corrected",
		zap.String("request_id", req.ID),
		zap.Int("attempt", req.RetryCount),
		zap.String("root_cause", c.RootCause))

	req.CurrentSQL = c.CorrectedQuery
	req.Explanation = c.RootCause
	req.Result = nil
	req.FromCache = false
	req.Validation = ValidationUnchecked
	// A new statement means the previous approval no longer applies.
	req.Approval = ApprovalPending

	o.emit(Event{
		Type:      EventRetrying,
		RequestID: req.ID,
		Node:      NodeDebug,
		Message:   c.CorrectedQuery,
		Attempt:   req.RetryCount,
	})
	return DecisionCorrected
}

// recordBudgetExhausted terminates the request once the correction budget is
// spent, preserving the accumulated error log.
func (r *Request) recordBudgetExhausted(lastErr string) {
	r.Status = StatusFailed
	r.FailureKind = errors.RetryBudgetExhausted
	r.FailureSummary = fmt.Sprintf(
		"retry budget exhausted after %d correction(s); last error: %s",
		r.RetryCount, lastErr)
}
