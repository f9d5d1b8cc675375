package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoCodeAlone/taskboard/messenger"
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

// reconcileScanLimit bounds how many recent messages are enumerated per
// channel during reconciliation.
const reconcileScanLimit = 100

// Reconcile runs the one-shot startup consistency sweep across every known
// workspace: drop tasks whose rendered message vanished while the process was
// down, re-render tasks left unrendered by an earlier failure, delete
// untracked system messages from managed channels, and republish summaries.
// A failing workspace or channel never aborts the others; the joined error
// reports what was skipped.
func (e *Engine) Reconcile(ctx context.Context) error {
	configs, err := e.ws.List()
	if err != nil {
		return fmt.Errorf("reconcile: list workspaces: %w", err)
	}

	var errs []error
	for _, cfg := range configs {
		if err := e.reconcileWorkspace(ctx, cfg); err != nil {
			e.logger.Error("workspace reconciliation incomplete",
				slog.String("workspace", cfg.WorkspaceID), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("workspace %s: %w", cfg.WorkspaceID, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) reconcileWorkspace(ctx context.Context, cfg *workspace.Config) error {
	unlock := e.lockWorkspace(cfg.WorkspaceID)
	defer unlock()

	var errs []error
	for _, s := range task.States() {
		channelID := cfg.ChannelFor(s)
		if channelID == "" {
			continue
		}
		if err := e.reconcileChannel(ctx, cfg, s, channelID); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", channelID, err))
		}
	}

	for _, s := range task.States() {
		if cfg.ChannelFor(s) == "" {
			continue
		}
		if err := e.RefreshSummary(ctx, cfg.WorkspaceID, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reconcileChannel repairs one bound channel: the channel is a managed view,
// so after this pass its system messages are exactly the tracked task
// renders plus the summary message.
func (e *Engine) reconcileChannel(ctx context.Context, cfg *workspace.Config, s task.State, channelID string) error {
	infos, err := e.msgr.ListRecentMessages(ctx, channelID, reconcileScanLimit)
	if err != nil {
		// Without a listing we cannot tell live messages from dead ones;
		// skip rather than mass-delete tasks on bad data.
		return fmt.Errorf("list messages: %w", err)
	}
	existing := make(map[string]bool, len(infos))
	for _, info := range infos {
		existing[info.ID] = true
	}

	tasks, err := e.tasks.ListByState(cfg.WorkspaceID, s)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	tracked := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.RenderedMessageID == "" {
			continue
		}
		if existing[t.RenderedMessageID] {
			tracked[t.RenderedMessageID] = true
			continue
		}
		// Message vanished while we were down: same abandonment policy as a
		// live deletion notification.
		e.logger.Info("task message missing, removing task",
			slog.String("task", t.ID), slog.String("message", t.RenderedMessageID))
		if err := e.tasks.Delete(t.ID); err != nil {
			return fmt.Errorf("remove orphaned task %s: %w", t.ID, err)
		}
	}

	// Untracked system messages in a managed channel are leftovers from a
	// previous unclean shutdown.
	summaryID := cfg.SummaryMessageFor(s)
	for _, info := range infos {
		if !info.SystemAuthored || info.ID == summaryID || tracked[info.ID] {
			continue
		}
		if err := e.msgr.DeleteMessage(ctx, channelID, info.ID); err != nil &&
			!errors.Is(err, messenger.ErrMessageNotFound) {
			e.logger.Warn("delete untracked message failed",
				slog.String("message", info.ID), slog.Any("err", err))
		}
	}

	// Tasks persisted without a render (an earlier send failed): repair now.
	for _, t := range tasks {
		if t.RenderedMessageID != "" {
			continue
		}
		msgID, err := e.msgr.SendMessage(ctx, channelID, renderTask(t))
		if err != nil {
			e.logger.Warn("re-render unrendered task failed",
				slog.String("task", t.ID), slog.Any("err", err))
			continue
		}
		if _, err := e.tasks.Update(t.ID, task.Mutation{RenderedMessageID: &msgID}); err != nil {
			return fmt.Errorf("store message id for %s: %w", t.ID, err)
		}
	}
	return nil
}
