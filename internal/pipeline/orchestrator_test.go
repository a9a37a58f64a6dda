// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/gateway"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/logging"
	"sqlpilot/cli/internal/querycache"
)

func validJudgment() llm.Judgment { return llm.Judgment{Valid: true} }

func invalidJudgment(issue string) llm.Judgment {
	return llm.Judgment{Valid: false, Issues: []string{issue}}
}

func TestReadOnlyHappyPath(t *testing.T) {
	gw := newFakeGateway()
	gw.results["SELECT count(*) FROM users"] = &gateway.Result{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(42)}},
	}
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT count(*) FROM users", Explanation: "counts users"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "There are 42 users.",
	}
	cache := querycache.New(querycache.DefaultCapacity)
	o := New(gw, collab, cache, WithLogger(logging.Nop()))

	req, err := o.Ask(context.Background(), "How many users are there?", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, req.Status)
	assert.Equal(t, "There are 42 users.", req.FinalAnswer)
	assert.Zero(t, req.RetryCount)
	assert.Empty(t, req.ErrorLog)
	assert.False(t, req.IsSensitive)
	assert.False(t, req.FromCache)
	assert.Equal(t, []string{"SELECT count(*) FROM users"}, gw.executions())

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestRepeatedQuestionServedFromCache(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT name FROM users"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "Alice and Bob.",
	}
	cache := querycache.New(querycache.DefaultCapacity)
	o := New(gw, collab, cache)

	first, err := o.Ask(context.Background(), "Who are the users?", 3)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, first.Status)

	second, err := o.Ask(context.Background(), "Who are the users?", 3)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, second.Status)

	assert.True(t, second.FromCache)
	assert.Len(t, gw.executions(), 1, "second run must not touch the database")
	assert.Equal(t, uint64(1), cache.Stats().Hits)
}

func TestSensitiveStatementSuspendsAndResumes(t *testing.T) {
	const stmt = "DELETE FROM sessions WHERE expired = 1"
	gw := newFakeGateway()
	gw.results[stmt] = &gateway.Result{RowsAffected: 12, HasRowsAffected: true}
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: stmt, Explanation: "removes expired sessions"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "Removed 12 expired sessions.",
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "Clean up expired sessions", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, req.Status)
	assert.True(t, req.IsSensitive)
	assert.Empty(t, gw.executions(), "nothing may execute before approval")

	pending := o.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].RequestID)
	assert.Equal(t, stmt, pending[0].SQL)

	done, err := o.Resume(context.Background(), req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, ApprovalApproved, done.Approval)
	assert.Equal(t, "Removed 12 expired sessions.", done.FinalAnswer)
	assert.Equal(t, []string{stmt}, gw.executions())
	assert.Empty(t, o.Pending())
}

func TestDeniedStatementNeverExecutes(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans: []llm.SQLQuery{{Query: "DROP TABLE audit_log"}},
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "Get rid of the audit log", 3)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, req.Status)

	done, err := o.Resume(context.Background(), req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusDenied, done.Status)
	assert.Equal(t, ApprovalDenied, done.Approval)
	assert.Empty(t, gw.executions())
	assert.Empty(t, o.Pending())

	// The decision is final; the id is gone.
	_, err = o.Resume(context.Background(), req.ID, true)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ApprovalDenied))
}

func TestRecoverableFailureIsCorrectedOnce(t *testing.T) {
	gw := newFakeGateway()
	gw.errs["SELECT * FROM usrs"] = errors.New(errors.ExecRecoverable, "no such table: usrs")
	gw.results["SELECT * FROM users"] = &gateway.Result{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}},
	}
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT * FROM usrs"}},
		judgments: []llm.Judgment{validJudgment()},
		corrections: []llm.Correction{{
			RootCause:      "table name misspelled",
			CorrectedQuery: "SELECT * FROM users",
		}},
		answer: "One user.",
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "List the users", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, req.Status)
	assert.Equal(t, 1, req.RetryCount)
	require.Len(t, req.ErrorLog, 1)
	assert.Equal(t, errors.ExecRecoverable, req.ErrorLog[0].Kind)
	assert.Equal(t, "SELECT * FROM users", req.CurrentSQL)
	assert.Equal(t, []string{"SELECT * FROM usrs", "SELECT * FROM users"}, gw.executions())
}

func TestRetryBudgetExhaustion(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT a FROM t"}},
		judgments: []llm.Judgment{invalidJudgment("wrong column")},
		corrections: []llm.Correction{
			{CorrectedQuery: "SELECT b FROM t"},
			{CorrectedQuery: "SELECT c FROM t"},
			{CorrectedQuery: "SELECT d FROM t"},
		},
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "Impossible question", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, req.Status)
	assert.Equal(t, 3, req.RetryCount, "retry count never exceeds the budget")
	assert.Len(t, req.ErrorLog, 4, "one failure per validated attempt")
	assert.Equal(t, errors.RetryBudgetExhausted, req.FailureKind)
	assert.Contains(t, req.FailureSummary, "retry budget exhausted")
	assert.Contains(t, req.FailureSummary, "wrong column")
	assert.Equal(t, 3, collab.correctCalls)
	assert.Empty(t, req.FinalAnswer)
}

func TestOversizedResultStillSucceeds(t *testing.T) {
	gw := newFakeGateway()
	gw.results["SELECT blob FROM files"] = &gateway.Result{
		Columns: []string{"blob"},
		Rows:    [][]any{{"a very large payload that exceeds the cache capacity"}},
	}
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT blob FROM files"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "Here is the file.",
	}
	cache := querycache.New(16)
	o := New(gw, collab, cache)

	req, err := o.Ask(context.Background(), "Show me the file", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, req.Status)
	stats := cache.Stats()
	assert.Zero(t, stats.Entries)
	assert.Zero(t, stats.BytesUsed)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCorrectedStatementReTriggersApproval(t *testing.T) {
	gw := newFakeGateway()
	gw.errs["DELETE FROM logs WHERE ts < '2024'"] =
		errors.New(errors.ExecRecoverable, "no such column: ts")
	gw.results["DELETE FROM logs WHERE created < '2024'"] =
		&gateway.Result{RowsAffected: 3, HasRowsAffected: true}
	collab := &fakeCollab{
		plans: []llm.SQLQuery{{Query: "DELETE FROM logs WHERE ts < '2024'"}},
		corrections: []llm.Correction{{
			RootCause:      "column is named created",
			CorrectedQuery: "DELETE FROM logs WHERE created < '2024'",
		}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "Deleted 3 old log rows.",
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "Delete old logs", 3)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, req.Status)

	// First approval covers only the original statement; the corrected one
	// must suspend again.
	again, err := o.Resume(context.Background(), req.ID, true)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, again.Status)
	assert.Equal(t, ApprovalPending, again.Approval)

	pending := o.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "DELETE FROM logs WHERE created < '2024'", pending[0].SQL)

	done, err := o.Resume(context.Background(), req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, 1, done.RetryCount)
}

func TestQuickValidationSkipsCollaborator(t *testing.T) {
	const stmt = "UPDATE users SET active = 0"
	gw := newFakeGateway()
	// Mutation result without an affected-row count fails the structural
	// check before any semantic judgment.
	gw.results[stmt] = &gateway.Result{}
	collab := &fakeCollab{
		plans: []llm.SQLQuery{{Query: stmt}},
		corrections: []llm.Correction{{
			CorrectedQuery: stmt + " WHERE last_seen < '2023'",
		}},
	}
	o := New(gw, collab, querycache.New(querycache.DefaultCapacity))

	req, err := o.Ask(context.Background(), "Deactivate users", 1)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, req.Status)

	resumed, err := o.Resume(context.Background(), req.ID, true)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, resumed.Status, "correction suspends again")

	require.NotEmpty(t, resumed.ErrorLog)
	assert.Equal(t, errors.ValidationQuick, resumed.ErrorLog[0].Kind)
	assert.Equal(t, ValidationUnchecked, resumed.Validation, "reset for the corrected statement")
	assert.Zero(t, collab.judgeCalls, "structural failure never reaches the model")
}

func TestFatalExecutionError(t *testing.T) {
	gw := newFakeGateway()
	gw.errs["SELECT 1"] = errors.New(errors.ExecFatal, "password authentication failed")
	collab := &fakeCollab{plans: []llm.SQLQuery{{Query: "SELECT 1"}}}
	o := New(gw, collab, nil)

	req, err := o.Ask(context.Background(), "ping", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, req.Status)
	assert.Zero(t, req.RetryCount, "fatal errors consume no retry budget")
	assert.Equal(t, errors.ExecFatal, req.FailureKind)
	assert.Contains(t, req.FailureSummary, "password authentication failed")
	assert.Contains(t, req.FailureSummary, "attempts made: 1")
	assert.Zero(t, collab.correctCalls)
}

func TestPlanningFailureIsTerminal(t *testing.T) {
	collab := &fakeCollab{planErr: errors.New(errors.PlanningFailed, "model unavailable")}
	o := New(newFakeGateway(), collab, nil)

	req, err := o.Ask(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, req.Status)
	assert.Contains(t, req.FailureSummary, "model unavailable")
}

func TestRenderFailureIsFatal(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT n FROM t"}},
		judgments: []llm.Judgment{validJudgment()},
		answerErr: errors.New(errors.CollaboratorFailed, "timeout"),
	}
	o := New(gw, collab, nil)

	req, err := o.Ask(context.Background(), "count", 3)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, req.Status)
	assert.Empty(t, req.FinalAnswer)
	assert.Equal(t, errors.CollaboratorFailed, req.FailureKind)
	assert.Contains(t, req.FailureSummary, "timeout")
	require.NotEmpty(t, req.ErrorLog)
	last := req.ErrorLog[len(req.ErrorLog)-1]
	assert.Equal(t, string(NodeAnswer), last.Stage)
	assert.Equal(t, errors.CollaboratorFailed, last.Kind)
}

func TestCancellationBeforeRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(newFakeGateway(), &fakeCollab{}, nil)

	req, err := o.Ask(ctx, "anything", 3)
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, req.Status)
}

func TestEventStream(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT 1"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "one",
	}
	var events []Event
	o := New(gw, collab, nil, WithEventSink(func(ev Event) { events = append(events, ev) }))

	_, err := o.Ask(context.Background(), "ping", 3)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventTerminal, last.Type)
	assert.Equal(t, StatusSucceeded, last.Status)
	assert.Equal(t, "one", last.Message)
}

func TestConcurrentRequestsShareOnlyTheCache(t *testing.T) {
	gw := newFakeGateway()
	collab := &fakeCollab{
		plans:     []llm.SQLQuery{{Query: "SELECT 1"}},
		judgments: []llm.Judgment{validJudgment()},
		answer:    "one",
	}
	cache := querycache.New(querycache.DefaultCapacity)
	o := New(gw, collab, cache)

	const n = 8
	done := make(chan *Request, n)
	for i := 0; i < n; i++ {
		go func() {
			req, _ := o.Ask(context.Background(), "ping", 3)
			done <- req
		}()
	}
	for i := 0; i < n; i++ {
		req := <-done
		assert.Equal(t, StatusSucceeded, req.Status)
	}
	stats := cache.Stats()
	assert.Equal(t, uint64(n), stats.Hits+stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}
