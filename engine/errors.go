package engine

import "errors"

// Engine-level error taxonomy. Store-level conditions (task.ErrNotFound,
// task.ErrDuplicateID) pass through wrapped; everything here is recoverable
// and surfaced to the caller, never fatal to the process.
var (
	// ErrNotConfigured means the workspace has no pending channel bound, so
	// tasks cannot be created yet.
	ErrNotConfigured = errors.New("workspace channels not configured")

	// ErrChannelNotConfigured means the transition's target state has no
	// channel bound.
	ErrChannelNotConfigured = errors.New("no channel bound for target state")

	// ErrExternalUnavailable means a messenger call failed. Persisted task
	// state is authoritative; the stale render is repaired by the next
	// reconciliation pass.
	ErrExternalUnavailable = errors.New("messenger unavailable")

	// ErrStale marks an inbound interaction older than the acceptance
	// window. It is rejected before any mutation or external call.
	ErrStale = errors.New("interaction too old")

	// ErrUnknownAction is returned for an action tag with no registered handler.
	ErrUnknownAction = errors.New("unknown action")
)
