// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"

	"sqlpilot/cli/internal/errors"
)

// answer renders the validated result as a natural-language answer. A
// collaborator failure here is fatal for the request: the answer is the
// deliverable, and there is no retry budget on this node.
func (o *Orchestrator) answer(ctx context.Context, req *Request) Decision {
	text, err := o.collab.RenderAnswer(ctx, req.Question, req.CurrentSQL, req.Result)
	if err != nil {
		req.recordFailure(string(NodeAnswer), errors.CollaboratorFailed, err.Error())
		req.fail("could not render the answer: " + err.Error())
		return DecisionFatal
	}
	req.FinalAnswer = text
	req.Status = StatusSucceeded
	return DecisionDone
}
