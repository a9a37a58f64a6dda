// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pipeline

// EventType classifies progress events emitted while a request runs.
type EventType string

const (
	// EventNodeDone fires after each node completes, with its decision.
	EventNodeDone EventType = "node_done"
	// EventApprovalRequired fires when a request suspends for a human.
	EventApprovalRequired EventType = "approval_required"
	// EventCacheHit fires when the executor serves a result from cache.
	EventCacheHit EventType = "cache_hit"
	// EventRetrying fires when the debugger produces a corrected statement.
	EventRetrying EventType = "retrying"
	// EventTerminal fires exactly once when a request reaches a terminal
	// status.
	EventTerminal EventType = "terminal"
)

// Event is one progress notification. Events are emitted synchronously from
// the drive loop; sinks must not block.
type Event struct {
	Type      EventType
	RequestID string
	Node      Node
	Decision  Decision
	Status    Status
	// Message carries human-oriented detail: the corrected SQL on a retry,
	// the statement awaiting approval, the failure summary on terminal.
	Message string
	// Attempt is the retry count at the time of the event.
	Attempt int
}

// EventSink receives progress events. A nil sink disables emission.
type EventSink func(Event)
