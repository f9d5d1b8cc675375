// Package events carries gateway events from the platform into the bot.
package events

import (
	"context"
	"time"
)

// Kind identifies the type of inbound gateway event.
type Kind string

const (
	// KindActionInvoked is a button press on a rendered task message.
	KindActionInvoked Kind = "action_invoked"
	// KindTaskSubmitted is a new-task command with title and description.
	KindTaskSubmitted Kind = "task_submitted"
	// KindTaskEdited is an edit form submission for an existing task.
	KindTaskEdited Kind = "task_edited"
	// KindUserAssigned is an assign form submission naming a user.
	KindUserAssigned Kind = "user_assigned"
	// KindChannelsConfigured binds the three state channels for a workspace.
	KindChannelsConfigured Kind = "channels_configured"
	// KindSummaryRefresh requests a republish of all bound summaries.
	KindSummaryRefresh Kind = "summary_refresh"
	// KindMessageDeleted reports an out-of-band message deletion.
	KindMessageDeleted Kind = "message_deleted"
)

// Event is one structured gateway notification. Which fields are populated
// depends on Kind; WorkspaceID is always set. OccurredAt is the platform's
// own timestamp for the triggering interaction, used for staleness checks.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	WorkspaceID string    `json:"workspace_id"`
	TaskID      string    `json:"task_id,omitempty"`
	ActionTag   string    `json:"action_tag,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Channels    []string  `json:"channels,omitempty"` // pending, in-progress, completed
	OccurredAt  time.Time `json:"occurred_at"`
}

// Handler processes one inbound event.
type Handler func(ctx context.Context, ev *Event) error

// Bus routes gateway events to subscribed handlers.
type Bus interface {
	// Publish delivers an event to every handler subscribed to its kind.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events of the given kind.
	// Returns an unsubscribe function.
	Subscribe(kind Kind, handler Handler) (unsubscribe func())

	// History returns the most recent limit events for a workspace.
	History(workspaceID string, limit int) []*Event
}
