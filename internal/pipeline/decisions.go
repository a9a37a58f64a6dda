// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

// Node names a pipeline stage.
type Node string

const (
	NodePlan     Node = "plan"
	NodeClassify Node = "classify"
	NodeExecute  Node = "execute"
	NodeValidate Node = "validate"
	NodeDebug    Node = "debug"
	NodeAnswer   Node = "answer"
)

// Decision is the routing outcome of a node. The set is closed; the dispatch
// table below enumerates every legal transition and anything else is a bug.
type Decision string

const (
	// DecisionPlanned: a candidate statement exists, go classify it.
	DecisionPlanned Decision = "planned"
	// DecisionClear: statement is read-only, no approval needed.
	DecisionClear Decision = "clear"
	// DecisionApproved: sensitive statement already has a human approval.
	DecisionApproved Decision = "approved"
	// DecisionSensitive: suspend the request and wait for a human.
	DecisionSensitive Decision = "sensitive"
	// DecisionExecuted: a result is in hand, go validate it.
	DecisionExecuted Decision = "executed"
	// DecisionExecFailed: recoverable execution error, go diagnose.
	DecisionExecFailed Decision = "exec_failed"
	// DecisionValid: result answers the question, go render it.
	DecisionValid Decision = "valid"
	// DecisionInvalid: result fails validation, go diagnose.
	DecisionInvalid Decision = "invalid"
	// DecisionCorrected: a new statement exists, re-classify it.
	DecisionCorrected Decision = "corrected"

	// Terminal decisions. The request status already reflects the outcome;
	// the drive loop stops without consulting the dispatch table.
	DecisionDone        Decision = "done"
	DecisionDenied      Decision = "denied"
	DecisionFatal       Decision = "fatal"
	DecisionBudgetSpent Decision = "budget_spent"
)

// transition keys the dispatch table.
type transition struct {
	From     Node
	Decision Decision
}

// routes is the single source of routing truth. A (node, decision) pair not
// present here either suspends (DecisionSensitive) or terminates.
var routes = map[transition]Node{
	{NodePlan, DecisionPlanned}:       NodeClassify,
	{NodeClassify, DecisionClear}:     NodeExecute,
	{NodeClassify, DecisionApproved}:  NodeExecute,
	{NodeExecute, DecisionExecuted}:   NodeValidate,
	{NodeExecute, DecisionExecFailed}: NodeDebug,
	{NodeValidate, DecisionValid}:     NodeAnswer,
	{NodeValidate, DecisionInvalid}:   NodeDebug,
	{NodeDebug, DecisionCorrected}:    NodeClassify,
}

// terminal reports whether a decision ends the drive loop.
func (d Decision) terminal() bool {
	switch d {
	case DecisionDone, DecisionDenied, DecisionFatal, DecisionBudgetSpent:
		return true
	}
	return false
}
