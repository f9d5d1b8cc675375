// Package messenger abstracts the chat-platform gateway the bot renders into.
// The engine produces abstract RenderSpecs; a Messenger implementation turns
// them into platform markup and owns message existence. The engine only ever
// holds message ids, and must tolerate the referenced messages vanishing.
package messenger

import (
	"context"
	"errors"

	"github.com/GoCodeAlone/taskboard/task"
)

// ErrMessageNotFound is returned when the referenced message no longer
// exists. Callers treat it as a recoverable condition, never as fatal.
var ErrMessageNotFound = errors.New("message not found")

// ActionStyle hints how an action affordance should be presented.
type ActionStyle string

const (
	StylePrimary   ActionStyle = "primary"
	StyleSuccess   ActionStyle = "success"
	StyleSecondary ActionStyle = "secondary"
	StyleDanger    ActionStyle = "danger"
)

// Field is one labelled value in a rendered message.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Action is one user-invocable affordance attached to a rendered message.
// Tag identifies the operation; the platform reports it back on invocation.
type Action struct {
	Tag   string      `json:"tag"`
	Label string      `json:"label"`
	Style ActionStyle `json:"style,omitempty"`
}

// RenderSpec is the abstract payload for one rendered message. ColorTag is
// the lifecycle state the platform maps to its own accent color.
type RenderSpec struct {
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	ColorTag task.State `json:"color_tag"`
	Fields   []Field    `json:"fields,omitempty"`
	Actions  []Action   `json:"actions,omitempty"`
}

// MessageInfo describes one externally-listed message.
type MessageInfo struct {
	ID             string `json:"id"`
	SystemAuthored bool   `json:"system_authored"`
}

// Messenger is the capability set the engine requires from the platform.
// Calls are long-latency network operations; implementations are responsible
// for request spacing under the platform's rate limits.
type Messenger interface {
	// SendMessage posts a new message and returns its id.
	SendMessage(ctx context.Context, channelID string, spec RenderSpec) (string, error)

	// EditMessage replaces an existing message's content in place.
	// Returns ErrMessageNotFound if the message no longer exists.
	EditMessage(ctx context.Context, channelID, messageID string, spec RenderSpec) error

	// DeleteMessage removes a message. Deleting an absent message returns
	// ErrMessageNotFound, which callers may ignore.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// ListRecentMessages returns up to limit of the channel's most recent
	// messages, newest first.
	ListRecentMessages(ctx context.Context, channelID string, limit int) ([]MessageInfo, error)
}
