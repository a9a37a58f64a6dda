// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

import (
	"context"

	"go.uber.org/zap"

	"sqlpilot/cli/internal/gateway"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/querycache"
)

// Orchestrator drives requests through the pipeline nodes. It is safe for
// concurrent use: each request is owned by the invocation driving it, and the
// shared query cache does its own locking.
type Orchestrator struct {
	gw      gateway.Gateway
	collab  llm.Collaborator
	cache   *querycache.Cache
	logger  *zap.Logger
	sink    EventSink
	pending *pendingRegistry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEventSink registers a progress event sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// New builds an Orchestrator. The cache may be nil, which disables result
// caching without changing any other behavior.
func New(gw gateway.Gateway, collab llm.Collaborator, cache *querycache.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:      gw,
		collab:  collab,
		cache:   cache,
		logger:  zap.NewNop(),
		pending: newPendingRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives a fresh request until it terminates or suspends for approval.
// When the returned request's status is StatusAwaitingApproval, it is parked
// in the pending registry and must be completed through Resume or
// CancelPending.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Request, error) {
	return o.drive(ctx, req, NodePlan)
}

// Ask is the convenience entry point: build a request for the question and
// run it.
func (o *Orchestrator) Ask(ctx context.Context, question string, maxRetries int) (*Request, error) {
	req := NewRequest(question, o.gw.Dialect(), maxRetries)
	return o.Run(ctx, req)
}

// drive loops over the dispatch table from the given node until the request
// terminates or suspends.
func (o *Orchestrator) drive(ctx context.Context, req *Request, node Node) (*Request, error) {
	steps := map[Node]func(context.Context, *Request) Decision{
		NodePlan:     o.plan,
		NodeClassify: o.classify,
		NodeExecute:  o.execute,
		NodeValidate: o.validate,
		NodeDebug:    o.debug,
		NodeAnswer:   o.answer,
	}

	for {
		if err := ctx.Err(); err != nil {
			req.fail("canceled: " + err.Error())
			o.emitTerminal(req)
			return req, err
		}

		step, ok := steps[node]
		if !ok {
			req.fail("no such pipeline node: " + string(node))
			o.emitTerminal(req)
			return req, nil
		}

		decision := step(ctx, req)
		o.emit(Event{
			Type:      EventNodeDone,
			RequestID: req.ID,
			Node:      node,
			Decision:  decision,
			Status:    req.Status,
			Attempt:   req.RetryCount,
		})

		if decision.terminal() {
			o.emitTerminal(req)
			return req, nil
		}

		if decision == DecisionSensitive {
			req.Status = StatusAwaitingApproval
			o.pending.park(req)
			o.logger.Info("awaiting approval",
				zap.String("request_id", req.ID),
				zap.String("sql", req.CurrentSQL))
			o.emit(Event{
				Type:      EventApprovalRequired,
				RequestID: req.ID,
				Node:      node,
				Status:    req.Status,
				Message:   req.CurrentSQL,
				Attempt:   req.RetryCount,
			})
			return req, nil
		}

		next, ok := routes[transition{From: node, Decision: decision}]
		if !ok {
			req.fail("no route from " + string(node) + " on " + string(decision))
			o.emitTerminal(req)
			return req, nil
		}
		node = next
	}
}

// CacheStats exposes the shared cache counters, or zero stats when caching is
// disabled.
func (o *Orchestrator) CacheStats() querycache.Stats {
	if o.cache == nil {
		return querycache.Stats{}
	}
	return o.cache.Stats()
}

func (o *Orchestrator) emit(ev Event) {
	if o.sink != nil {
		o.sink(ev)
	}
}

func (o *Orchestrator) emitTerminal(req *Request) {
	msg := req.FinalAnswer
	if req.Status != StatusSucceeded {
		msg = req.FailureSummary
	}
	o.emit(Event{
		Type:      EventTerminal,
		RequestID: req.ID,
		Status:    req.Status,
		Message:   msg,
		Attempt:   req.RetryCount,
	})
}
