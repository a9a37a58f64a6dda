// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
)

// plan turns the natural-language question into a candidate statement. The
// schema context is introspected once per request and reused across retries.
func (o *Orchestrator) plan(ctx context.Context, req *Request) Decision {
	if req.SchemaContext == "" {
		schema, err := o.gw.Schema(ctx)
		if err != nil {
			// Planning can proceed without schema context; execution
			// will surface a real connectivity problem on its own.
			o.logger.Warn("schema introspection failed, planning without it",
				zap.String("request_id", req.ID), zap.Error(err))
		} else {
			req.SchemaContext = schema
		}
	}

	q, err := o.collab.GenerateSQL(ctx, req.Question, req.Dialect, req.SchemaContext)
	if err != nil {
		req.recordFailure(string(NodePlan), errors.PlanningFailed, err.Error())
		req.fail("could not derive a statement from the question: " + err.Error())
		return DecisionFatal
	}

	req.CurrentSQL = q.Query
	req.Explanation = q.Explanation
	o.logger.Debug("statement planned",
		zap.String("request_id", req.ID), zap.String("sql", q.Query))
	return DecisionPlanned
}
