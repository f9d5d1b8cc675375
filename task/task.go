// Package task defines the task model and persistence for tracked work items.
package task

import (
	"errors"
	"time"
)

// State represents the lifecycle position of a task.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// States returns all lifecycle states in display order.
func States() []State {
	return []State{StatePending, StateInProgress, StateCompleted}
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateInProgress, StateCompleted:
		return true
	}
	return false
}

// Store-level errors.
var (
	// ErrNotFound is returned when no task matches the given key.
	ErrNotFound = errors.New("task not found")

	// ErrDuplicateID is returned by Create when the task ID already exists.
	ErrDuplicateID = errors.New("duplicate task id")
)

// Task is a tracked work item owned by one workspace. A task is represented
// externally by at most one rendered chat message at a time;
// RenderedMessageID holds its id, or "" while the task is unrendered.
type Task struct {
	ID                string    `json:"id"`
	WorkspaceID       string    `json:"workspace_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	State             State     `json:"state"`
	AssignedUsers     []string  `json:"assigned_users,omitempty"`
	RenderedMessageID string    `json:"rendered_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Assigned reports whether userID is in the task's assignee set.
func (t *Task) Assigned(userID string) bool {
	for _, u := range t.AssignedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// Mutation is a partial update applied by Store.Update. Nil fields are left
// unchanged. RenderedMessageID set to the empty string clears the reference.
type Mutation struct {
	Title             *string
	Description       *string
	State             *State
	AssignedUsers     *[]string
	RenderedMessageID *string
}

// Store persists and retrieves tasks. Implementations must durably commit
// every mutation before returning, and must be safe for concurrent use.
type Store interface {
	// Create persists a new task. Fails with ErrDuplicateID if the ID exists.
	Create(t *Task) error

	// Get retrieves a task by workspace and ID.
	Get(workspaceID, id string) (*Task, error)

	// ListByWorkspace returns all of a workspace's tasks in insertion order.
	ListByWorkspace(workspaceID string) ([]*Task, error)

	// ListByState returns a workspace's tasks in the given state, insertion order.
	ListByState(workspaceID string, s State) ([]*Task, error)

	// Update applies a partial mutation atomically and returns the updated task.
	Update(id string, mut Mutation) (*Task, error)

	// Delete removes a task by ID. Deleting an absent task is not an error.
	Delete(id string) error

	// GetByRenderedMessage finds the task represented by the given message.
	GetByRenderedMessage(messageID string) (*Task, error)

	// DeleteByRenderedMessage removes the task represented by the given
	// message and returns it, or (nil, nil) when no task matches.
	DeleteByRenderedMessage(messageID string) (*Task, error)
}
