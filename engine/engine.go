// Package engine implements the task lifecycle and its synchronization with
// rendered chat messages. Every mutation persists task state first; the
// external render is a projection of that state and may lag behind it when
// the platform is unavailable, until the next reconciliation pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/taskboard/messenger"
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

const (
	defaultDescription = "No description provided"
	maxIDAttempts      = 3
)

// Engine owns validated state transitions and the one-task-one-message
// invariant. All mutating operations for a workspace are serialized through a
// per-workspace lock held across the read-modify-render-persist sequence.
type Engine struct {
	tasks  task.Store
	ws     workspace.Store
	msgr   messenger.Messenger
	logger *slog.Logger

	actions map[string]ActionFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine wired to the given stores and messenger.
func New(tasks task.Store, ws workspace.Store, msgr messenger.Messenger, logger *slog.Logger) *Engine {
	e := &Engine{
		tasks:  tasks,
		ws:     ws,
		msgr:   msgr,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
	e.actions = buildActionRegistry(e)
	return e
}

// lockWorkspace acquires the workspace's mutex, creating it on first use.
// The returned function releases it.
func (e *Engine) lockWorkspace(workspaceID string) func() {
	e.mu.Lock()
	l, ok := e.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[workspaceID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// newTaskID generates a workspace-namespaced task id. The workspace prefix is
// load-bearing: listing by workspace relies on ids never colliding across
// workspaces.
func newTaskID(workspaceID string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", workspaceID, time.Now().Unix(), suffix)
}

// CreateTask persists a new pending task and renders it into the workspace's
// pending channel. Fails with ErrNotConfigured when no pending channel is
// bound. When the render fails the task stays persisted unrendered and is
// returned alongside a wrapped ErrExternalUnavailable; startup reconciliation
// repairs the missing render.
func (e *Engine) CreateTask(ctx context.Context, workspaceID, title, description string) (*task.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("create task: empty title")
	}
	if strings.TrimSpace(description) == "" {
		description = defaultDescription
	}

	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	cfg, err := e.ws.Get(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", workspaceID, err)
	}
	channelID := cfg.ChannelFor(task.StatePending)
	if channelID == "" {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, ErrNotConfigured)
	}

	t := &task.Task{
		WorkspaceID: workspaceID,
		Title:       strings.TrimSpace(title),
		Description: description,
		State:       task.StatePending,
	}
	for attempt := 0; ; attempt++ {
		t.ID = newTaskID(workspaceID)
		err = e.tasks.Create(t)
		if err == nil {
			break
		}
		if !errors.Is(err, task.ErrDuplicateID) || attempt+1 >= maxIDAttempts {
			return nil, fmt.Errorf("create task: %w", err)
		}
	}

	msgID, err := e.msgr.SendMessage(ctx, channelID, renderTask(t))
	if err != nil {
		e.logger.Warn("render new task failed, leaving unrendered",
			slog.String("task", t.ID), slog.Any("err", err))
		return t, fmt.Errorf("render task %s: %w", t.ID, ErrExternalUnavailable)
	}
	t, err = e.tasks.Update(t.ID, task.Mutation{RenderedMessageID: &msgID})
	if err != nil {
		return nil, fmt.Errorf("store message id for %s: %w", t.ID, err)
	}

	e.refreshSummaryLogged(ctx, workspaceID, task.StatePending)
	return t, nil
}

// Transition moves a task to targetState: persist the new state, retire the
// old rendered message best-effort, render into the destination channel, and
// refresh both affected summaries. Transitioning to the current state is a
// successful no-op with no external calls.
func (e *Engine) Transition(ctx context.Context, workspaceID, taskID string, targetState task.State) (*task.Task, error) {
	if !targetState.Valid() {
		return nil, fmt.Errorf("transition: invalid state %q", targetState)
	}

	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	t, err := e.tasks.Get(workspaceID, taskID)
	if err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	if t.State == targetState {
		return t, nil
	}

	cfg, err := e.ws.Get(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", workspaceID, err)
	}
	destChannel := cfg.ChannelFor(targetState)
	if destChannel == "" {
		return nil, fmt.Errorf("state %s: %w", targetState, ErrChannelNotConfigured)
	}

	sourceState := t.State
	sourceChannel := cfg.ChannelFor(sourceState)
	oldMessageID := t.RenderedMessageID

	// Source of truth first: the state change survives any messenger failure.
	t, err = e.tasks.Update(taskID, task.Mutation{State: &targetState})
	if err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	if oldMessageID != "" && sourceChannel != "" {
		if err := e.msgr.DeleteMessage(ctx, sourceChannel, oldMessageID); err != nil &&
			!errors.Is(err, messenger.ErrMessageNotFound) {
			e.logger.Warn("retire old task message failed",
				slog.String("task", taskID), slog.Any("err", err))
		}
	}

	msgID, sendErr := e.msgr.SendMessage(ctx, destChannel, renderTask(t))
	if sendErr != nil {
		// Old message is gone or doomed; clear the reference so
		// reconciliation re-renders instead of trusting a dead id.
		empty := ""
		if t, err = e.tasks.Update(taskID, task.Mutation{RenderedMessageID: &empty}); err != nil {
			return nil, fmt.Errorf("clear message id for %s: %w", taskID, err)
		}
		e.refreshSummaryLogged(ctx, workspaceID, sourceState)
		e.refreshSummaryLogged(ctx, workspaceID, targetState)
		return t, fmt.Errorf("render task %s: %w", taskID, ErrExternalUnavailable)
	}
	t, err = e.tasks.Update(taskID, task.Mutation{RenderedMessageID: &msgID})
	if err != nil {
		return nil, fmt.Errorf("store message id for %s: %w", taskID, err)
	}

	e.refreshSummaryLogged(ctx, workspaceID, sourceState)
	e.refreshSummaryLogged(ctx, workspaceID, targetState)
	return t, nil
}

// AssignResult discriminates assignment outcomes. Membership is the
// discriminator, not an error: assigning an already-assigned user succeeds
// without touching state.
type AssignResult string

const (
	Assigned        AssignResult = "assigned"
	AlreadyAssigned AssignResult = "already_assigned"
	Unassigned      AssignResult = "unassigned"
	NotAssigned     AssignResult = "not_assigned"
)

// AssignUser adds userID to the task's assignee set and refreshes the
// rendered message in place. Returns AlreadyAssigned, with no save and no
// re-render, when the user is already on the task.
func (e *Engine) AssignUser(ctx context.Context, workspaceID, taskID, userID string) (AssignResult, error) {
	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	t, err := e.tasks.Get(workspaceID, taskID)
	if err != nil {
		return "", fmt.Errorf("assign: %w", err)
	}
	if t.Assigned(userID) {
		return AlreadyAssigned, nil
	}

	users := append(append([]string(nil), t.AssignedUsers...), userID)
	t, err = e.tasks.Update(taskID, task.Mutation{AssignedUsers: &users})
	if err != nil {
		return "", fmt.Errorf("assign: %w", err)
	}
	e.editRenderedLogged(ctx, t)
	return Assigned, nil
}

// UnassignUser removes userID from the task's assignee set. Returns
// NotAssigned, with no save and no re-render, when the user was not on the task.
func (e *Engine) UnassignUser(ctx context.Context, workspaceID, taskID, userID string) (AssignResult, error) {
	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	t, err := e.tasks.Get(workspaceID, taskID)
	if err != nil {
		return "", fmt.Errorf("unassign: %w", err)
	}
	if !t.Assigned(userID) {
		return NotAssigned, nil
	}

	users := make([]string, 0, len(t.AssignedUsers)-1)
	for _, u := range t.AssignedUsers {
		if u != userID {
			users = append(users, u)
		}
	}
	t, err = e.tasks.Update(taskID, task.Mutation{AssignedUsers: &users})
	if err != nil {
		return "", fmt.Errorf("unassign: %w", err)
	}
	e.editRenderedLogged(ctx, t)
	return Unassigned, nil
}

// ToggleAssign assigns the user when absent and unassigns when present.
// Backs the assign-me action.
func (e *Engine) ToggleAssign(ctx context.Context, workspaceID, taskID, userID string) (AssignResult, error) {
	t, err := e.tasks.Get(workspaceID, taskID)
	if err != nil {
		return "", fmt.Errorf("toggle assign: %w", err)
	}
	if t.Assigned(userID) {
		return e.UnassignUser(ctx, workspaceID, taskID, userID)
	}
	return e.AssignUser(ctx, workspaceID, taskID, userID)
}

// EditTask applies a partial title/description update and refreshes the
// rendered message in place. Nil fields are left unchanged.
func (e *Engine) EditTask(ctx context.Context, workspaceID, taskID string, newTitle, newDescription *string) (*task.Task, error) {
	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	if _, err := e.tasks.Get(workspaceID, taskID); err != nil {
		return nil, fmt.Errorf("edit: %w", err)
	}
	t, err := e.tasks.Update(taskID, task.Mutation{Title: newTitle, Description: newDescription})
	if err != nil {
		return nil, fmt.Errorf("edit: %w", err)
	}
	e.editRenderedLogged(ctx, t)
	return t, nil
}

// DeleteTask removes the task and best-effort deletes its rendered message.
// Deleting an absent task is not an error.
func (e *Engine) DeleteTask(ctx context.Context, workspaceID, taskID string) error {
	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	t, err := e.tasks.Get(workspaceID, taskID)
	if errors.Is(err, task.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := e.tasks.Delete(taskID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if t.RenderedMessageID != "" {
		cfg, err := e.ws.Get(workspaceID)
		if err == nil {
			if ch := cfg.ChannelFor(t.State); ch != "" {
				if err := e.msgr.DeleteMessage(ctx, ch, t.RenderedMessageID); err != nil &&
					!errors.Is(err, messenger.ErrMessageNotFound) {
					e.logger.Warn("delete task message failed",
						slog.String("task", taskID), slog.Any("err", err))
				}
			}
		}
	}

	e.refreshSummaryLogged(ctx, workspaceID, t.State)
	return nil
}

// HandleMessageDeleted reacts to an out-of-band message deletion reported by
// the platform. The rendered message is the task's visible representation, so
// its disappearance removes the task rather than re-rendering it. Unknown
// message ids are ignored.
func (e *Engine) HandleMessageDeleted(ctx context.Context, messageID string) error {
	t, err := e.tasks.GetByRenderedMessage(messageID)
	if errors.Is(err, task.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup deleted message: %w", err)
	}

	unlock := e.lockWorkspace(t.WorkspaceID)
	defer unlock()

	removed, err := e.tasks.DeleteByRenderedMessage(messageID)
	if err != nil {
		return fmt.Errorf("remove abandoned task: %w", err)
	}
	if removed == nil {
		return nil
	}
	e.logger.Info("task removed after external message deletion",
		slog.String("task", removed.ID), slog.String("message", messageID))
	e.refreshSummaryLogged(ctx, removed.WorkspaceID, removed.State)
	return nil
}

// ConfigureChannels binds the three state channels for a workspace and
// republishes every summary.
func (e *Engine) ConfigureChannels(ctx context.Context, workspaceID, pending, inProgress, completed string) (*workspace.Config, error) {
	if pending == "" || inProgress == "" || completed == "" {
		return nil, fmt.Errorf("configure channels: all three channels required")
	}

	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	cfg, err := e.ws.Upsert(workspaceID, workspace.ChannelMutation(pending, inProgress, completed))
	if err != nil {
		return nil, fmt.Errorf("configure channels: %w", err)
	}
	for _, s := range task.States() {
		e.refreshSummaryLogged(ctx, workspaceID, s)
	}
	return cfg, nil
}

// RefreshAllSummaries republishes the summary for every bound state.
func (e *Engine) RefreshAllSummaries(ctx context.Context, workspaceID string) error {
	unlock := e.lockWorkspace(workspaceID)
	defer unlock()

	var errs []error
	for _, s := range task.States() {
		if err := e.RefreshSummary(ctx, workspaceID, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// editRenderedLogged refreshes a task's existing message in place. Failures
// are logged, not returned: the persisted state already won.
func (e *Engine) editRenderedLogged(ctx context.Context, t *task.Task) {
	if t.RenderedMessageID == "" {
		return
	}
	cfg, err := e.ws.Get(t.WorkspaceID)
	if err != nil {
		e.logger.Warn("load workspace for re-render", slog.Any("err", err))
		return
	}
	ch := cfg.ChannelFor(t.State)
	if ch == "" {
		return
	}
	if err := e.msgr.EditMessage(ctx, ch, t.RenderedMessageID, renderTask(t)); err != nil {
		e.logger.Warn("in-place re-render failed",
			slog.String("task", t.ID), slog.Any("err", err))
	}
}

// refreshSummaryLogged refreshes one summary, logging instead of failing the
// surrounding operation.
func (e *Engine) refreshSummaryLogged(ctx context.Context, workspaceID string, s task.State) {
	if err := e.RefreshSummary(ctx, workspaceID, s); err != nil {
		e.logger.Warn("summary refresh failed",
			slog.String("workspace", workspaceID), slog.String("state", string(s)),
			slog.Any("err", err))
	}
}
