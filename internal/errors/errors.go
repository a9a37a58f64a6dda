// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error
// kinds and human-friendly messages, so the pipeline can distinguish failures it
// can recover from (by entering the debug loop) from failures that must terminate
// the request immediately.
//
// The package supports wrapping underlying errors while maintaining error kind
// information, making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// PlanningFailed indicates the model collaborator could not produce SQL. Fatal.
	PlanningFailed Kind = "planning_failed"
	// ExecRecoverable indicates an execution failure the debug loop can correct:
	// syntax errors, missing columns or tables, constraint violations, transient
	// connection problems.
	ExecRecoverable Kind = "execution_recoverable"
	// ExecFatal indicates an execution failure retrying cannot help with:
	// authorization failures, unsupported dialects, a gateway that stayed
	// unreachable after its own retries.
	ExecFatal Kind = "execution_fatal"
	// ValidationQuick indicates the structural sanity check rejected a result.
	ValidationQuick Kind = "validation_quick"
	// ValidationSemantic indicates the model collaborator judged the result
	// a poor answer to the question.
	ValidationSemantic Kind = "validation_semantic"
	// RetryBudgetExhausted indicates the debug loop ran out of attempts. Terminal.
	RetryBudgetExhausted Kind = "retry_budget_exhausted"
	// ApprovalDenied indicates a human declined a sensitive statement. Terminal,
	// but a normal negative outcome rather than a malfunction.
	ApprovalDenied Kind = "approval_denied"
	// CollaboratorFailed indicates the model collaborator itself failed
	// (timeout, rate limit, malformed output). Fatal.
	CollaboratorFailed Kind = "collaborator_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// GetKind extracts the Kind from err, unwrapping as needed.
// Returns the empty Kind when err carries no category.
func GetKind(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return GetKind(err) == kind }

// Recoverable reports whether the debug loop may absorb err and retry.
// Everything not explicitly recoverable is treated as fatal.
func Recoverable(err error) bool {
	switch GetKind(err) {
	case ExecRecoverable, ValidationQuick, ValidationSemantic:
		return true
	}
	return false
}
