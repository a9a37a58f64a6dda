// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pipeline implements the self-correcting query execution state
// machine: plan, approve, execute, validate, debug, answer. One Request flows
// through the nodes sequentially; many requests may run concurrently, sharing
// only the query cache. Routing is decided in a single dispatch table so every
// transition is statically enumerable.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/gateway"
)

// DefaultMaxRetries is the correction budget used when none is configured.
const DefaultMaxRetries = 3

// Status is the lifecycle state of a request.
type Status string

const (
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusSucceeded        Status = "succeeded"
	StatusDenied           Status = "denied"
	StatusFailed           Status = "failed"
)

// Terminal reports whether no further node may run for this request.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusDenied || s == StatusFailed
}

// ApprovalDecision is the human decision on a sensitive statement.
type ApprovalDecision string

const (
	ApprovalPending  ApprovalDecision = "pending"
	ApprovalApproved ApprovalDecision = "approved"
	ApprovalDenied   ApprovalDecision = "denied"
)

// ValidationStatus records how far the current result got through validation.
type ValidationStatus string

const (
	ValidationUnchecked      ValidationStatus = "unchecked"
	ValidationQuickFailed    ValidationStatus = "quick_failed"
	ValidationSemanticFailed ValidationStatus = "semantic_failed"
	ValidationValid          ValidationStatus = "valid"
)

// Failure is one recorded entry in a request's error log.
type Failure struct {
	Stage   string      `json:"stage"`
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Request is the per-question state flowing through the pipeline. It is owned
// exclusively by the orchestrator invocation processing it; nothing is shared
// across requests except the query cache.
type Request struct {
	// ID identifies the request, in particular for pending-approval lookup.
	ID string
	// Question is the natural-language question to answer.
	Question string
	// Dialect is the SQL dialect of the target database.
	Dialect dialect.Dialect
	// SchemaContext is the introspected schema summary fed to the planner.
	SchemaContext string

	// CurrentSQL is the candidate statement; empty until the planner runs,
	// replaced by the debugger on each correction.
	CurrentSQL string
	// Explanation is the model's description of what CurrentSQL does.
	Explanation string

	// IsSensitive marks CurrentSQL as data- or schema-mutating.
	IsSensitive bool
	// Approval is the human decision for the current statement. Reset to
	// pending whenever the debugger produces a new statement.
	Approval ApprovalDecision

	// Result holds the rows or affected-row count of the last execution.
	Result *gateway.Result
	// FromCache marks Result as served by the query cache.
	FromCache bool

	Validation ValidationStatus

	// RetryCount is the number of corrections consumed. Never exceeds
	// MaxRetries.
	RetryCount int
	MaxRetries int

	// ErrorLog accumulates every recoverable failure, oldest first.
	ErrorLog []Failure

	// FinalAnswer is set on the success path only.
	FinalAnswer string
	// FailureSummary is a human-readable summary set on the failed path.
	FailureSummary string
	// FailureKind categorizes a failed terminal: the kind of the failure
	// that ended the request, or RetryBudgetExhausted when the correction
	// budget ran out.
	FailureKind errors.Kind

	Status Status
}

// NewRequest initializes request state for a question.
func NewRequest(question string, d dialect.Dialect, maxRetries int) *Request {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Request{
		ID:         uuid.NewString(),
		Question:   question,
		Dialect:    d,
		Approval:   ApprovalPending,
		Validation: ValidationUnchecked,
		MaxRetries: maxRetries,
		Status:     StatusRunning,
	}
}

// recordFailure appends a failure to the error log.
func (r *Request) recordFailure(stage string, kind errors.Kind, msg string) {
	r.ErrorLog = append(r.ErrorLog, Failure{
		Stage:   stage,
		Kind:    kind,
		Message: msg,
		At:      time.Now(),
	})
}

// lastFailure returns the most recent error log entry, or nil.
func (r *Request) lastFailure() *Failure {
	if len(r.ErrorLog) == 0 {
		return nil
	}
	return &r.ErrorLog[len(r.ErrorLog)-1]
}

// fail moves the request to the failed terminal state with a summary that
// names the last error and the number of attempts made. The failure kind is
// taken from the most recent error log entry; fatal paths record one before
// calling fail.
func (r *Request) fail(reason string) {
	r.Status = StatusFailed
	r.FailureSummary = fmt.Sprintf("%s (attempts made: %d)", reason, r.RetryCount+1)
	if f := r.lastFailure(); f != nil {
		r.FailureKind = f.Kind
	}
}

// deny moves the request to the denied terminal state.
func (r *Request) deny() {
	r.Approval = ApprovalDenied
	r.Status = StatusDenied
	r.FailureSummary = "a human declined the sensitive operation"
}
