// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/errors"
	"sqlpilot/cli/internal/sqlparse"
)

// classify decides whether the current statement needs a human decision
// before it may touch the database. Every statement passes through here,
// including corrected ones, so a correction that turns a harmless read into a
// mutation re-triggers approval.
func (o *Orchestrator) classify(_ context.Context, req *Request) Decision {
	req.IsSensitive = sqlparse.IsSensitive(req.CurrentSQL)
	if !req.IsSensitive {
		return DecisionClear
	}
	if req.Approval == ApprovalApproved {
		return DecisionApproved
	}
	return DecisionSensitive
}

// PendingApproval describes one suspended request awaiting a human decision.
type PendingApproval struct {
	RequestID   string
	Question    string
	SQL         string
	Explanation string
	Attempt     int
}

// pendingRegistry parks suspended requests keyed by request ID. Access is
// serialized; the registry never holds its lock while a request runs.
type pendingRegistry struct {
	mu   sync.Mutex
	reqs map[string]*Request
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{reqs: make(map[string]*Request)}
}

func (p *pendingRegistry) park(req *Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs[req.ID] = req
}

func (p *pendingRegistry) take(id string) (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.reqs[id]
	if ok {
		delete(p.reqs, id)
	}
	return req, ok
}

func (p *pendingRegistry) list() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Request, 0, len(p.reqs))
	for _, req := range p.reqs {
		out = append(out, req)
	}
	return out
}

// Pending lists requests currently suspended for approval.
func (o *Orchestrator) Pending() []PendingApproval {
	reqs := o.pending.list()
	out := make([]PendingApproval, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, PendingApproval{
			RequestID:   req.ID,
			Question:    req.Question,
			SQL:         req.CurrentSQL,
			Explanation: req.Explanation,
			Attempt:     req.RetryCount,
		})
	}
	return out
}

// Resume re-enters a suspended request with the human decision. A denial is
// final: the request terminates without the statement ever reaching the
// database. An approval covers exactly the statement that was shown; any
// later correction suspends again.
func (o *Orchestrator) Resume(ctx context.Context, id string, approved bool) (*Request, error) {
	req, ok := o.pending.take(id)
	if !ok {
		return nil, errors.New(errors.ApprovalDenied, "no pending approval with id "+id)
	}
	if !approved {
		req.deny()
		o.logger.Info("sensitive statement denied",
			zap.String("request_id", req.ID))
		o.emit(Event{
			Type:      EventTerminal,
			RequestID: req.ID,
			Status:    req.Status,
			Message:   req.FailureSummary,
			Attempt:   req.RetryCount,
		})
		return req, nil
	}
	req.Approval = ApprovalApproved
	req.Status = StatusRunning
	o.logger.Info("sensitive statement approved",
		zap.String("request_id", req.ID))
	return o.drive(ctx, req, NodeClassify)
}

// CancelPending withdraws a suspended request. Cancellation before the human
// decides is treated as a denial.
func (o *Orchestrator) CancelPending(id string) (*Request, error) {
	req, ok := o.pending.take(id)
	if !ok {
		return nil, errors.New(errors.ApprovalDenied, "no pending approval with id "+id)
	}
	req.deny()
	o.emit(Event{
		Type:      EventTerminal,
		RequestID: req.ID,
		Status:    req.Status,
		Message:   req.FailureSummary,
		Attempt:   req.RetryCount,
	})
	return req, nil
}
