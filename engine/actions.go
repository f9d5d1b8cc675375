package engine

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/taskboard/task"
)

// Action tags reported back by the platform when a user presses a rendered
// button. Assign and edit open platform input forms and come back as their
// own event kinds; the rest dispatch directly through the registry.
const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionPause    = "pause"
	ActionReopen   = "reopen"
	ActionAssignMe = "assign-me"
	ActionAssign   = "assign"
	ActionEdit     = "edit"
	ActionDelete   = "delete"
)

// ActionFunc executes one user-triggered operation on a task.
type ActionFunc func(ctx context.Context, workspaceID, taskID, userID string) error

// buildActionRegistry enumerates the dispatch table explicitly so it can be
// inspected and tested; no handler is discovered at runtime.
func buildActionRegistry(e *Engine) map[string]ActionFunc {
	transitionTo := func(target task.State) ActionFunc {
		return func(ctx context.Context, workspaceID, taskID, _ string) error {
			_, err := e.Transition(ctx, workspaceID, taskID, target)
			return err
		}
	}
	return map[string]ActionFunc{
		ActionStart:    transitionTo(task.StateInProgress),
		ActionComplete: transitionTo(task.StateCompleted),
		ActionPause:    transitionTo(task.StatePending),
		ActionReopen:   transitionTo(task.StatePending),
		ActionAssignMe: func(ctx context.Context, workspaceID, taskID, userID string) error {
			_, err := e.ToggleAssign(ctx, workspaceID, taskID, userID)
			return err
		},
		ActionDelete: func(ctx context.Context, workspaceID, taskID, _ string) error {
			return e.DeleteTask(ctx, workspaceID, taskID)
		},
	}
}

// Dispatch routes an action tag through the registry.
func (e *Engine) Dispatch(ctx context.Context, actionTag, workspaceID, taskID, userID string) error {
	fn, ok := e.actions[actionTag]
	if !ok {
		return fmt.Errorf("%q: %w", actionTag, ErrUnknownAction)
	}
	return fn(ctx, workspaceID, taskID, userID)
}

// ActionTags returns the registered action tags, for inspection.
func (e *Engine) ActionTags() []string {
	tags := make([]string, 0, len(e.actions))
	for tag := range e.actions {
		tags = append(tags, tag)
	}
	return tags
}
