// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"sync"

	"sqlpilot/cli/internal/dialect"
	"sqlpilot/cli/internal/gateway"
	"sqlpilot/cli/internal/llm"
)

// fakeCollab scripts the model collaborator. Each slice is consumed in order;
// the last element sticks once the script runs out.
type fakeCollab struct {
	mu          sync.Mutex
	plans       []llm.SQLQuery
	planErr     error
	judgments   []llm.Judgment
	judgeErr    error
	corrections []llm.Correction
	correctErr  error
	answer      string
	answerErr   error

	planCalls    int
	judgeCalls   int
	correctCalls int
	answerCalls  int
}

func pick[T any](script []T, call int) T {
	var zero T
	if len(script) == 0 {
		return zero
	}
	if call >= len(script) {
		return script[len(script)-1]
	}
	return script[call]
}

func (f *fakeCollab) GenerateSQL(_ context.Context, _ string, _ dialect.Dialect, _ string) (llm.SQLQuery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := pick(f.plans, f.planCalls)
	f.planCalls++
	return out, f.planErr
}

func (f *fakeCollab) JudgeSemanticMatch(_ context.Context, _, _ string, _ *gateway.Result) (llm.Judgment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := pick(f.judgments, f.judgeCalls)
	f.judgeCalls++
	return out, f.judgeErr
}

func (f *fakeCollab) DiagnoseAndCorrect(_ context.Context, _ string, _ dialect.Dialect, _, _, _ string) (llm.Correction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := pick(f.corrections, f.correctCalls)
	f.correctCalls++
	return out, f.correctErr
}

func (f *fakeCollab) RenderAnswer(_ context.Context, _, _ string, _ *gateway.Result) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answerCalls++
	return f.answer, f.answerErr
}

// fakeGateway scripts the database, keyed by exact statement text.
type fakeGateway struct {
	mu      sync.Mutex
	d       dialect.Dialect
	schema  string
	results map[string]*gateway.Result
	errs    map[string]error
	calls   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		d:       dialect.SQLite,
		results: make(map[string]*gateway.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeGateway) Execute(_ context.Context, sql string, _ ...any) (*gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sql)
	if err, ok := f.errs[sql]; ok {
		return nil, err
	}
	if res, ok := f.results[sql]; ok {
		return res, nil
	}
	return &gateway.Result{Columns: []string{"n"}, Rows: [][]any{{int64(0)}}}, nil
}

func (f *fakeGateway) Schema(_ context.Context) (string, error) { return f.schema, nil }

func (f *fakeGateway) Dialect() dialect.Dialect { return f.d }

func (f *fakeGateway) Close() {}

func (f *fakeGateway) executions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
