package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

// RefreshSummary recomputes and republishes the aggregate message for one
// (workspace, state) pair. The existing summary message is edited in place;
// only when the edit fails or no id is stored is a new message created and
// its id persisted, so at most one live summary exists per pair. States with
// no bound channel are skipped.
func (e *Engine) RefreshSummary(ctx context.Context, workspaceID string, s task.State) error {
	cfg, err := e.ws.Get(workspaceID)
	if err != nil {
		return fmt.Errorf("refresh summary: %w", err)
	}
	channelID := cfg.ChannelFor(s)
	if channelID == "" {
		return nil
	}

	tasks, err := e.tasks.ListByState(workspaceID, s)
	if err != nil {
		return fmt.Errorf("refresh summary: %w", err)
	}
	spec := renderSummary(s, len(tasks))

	if msgID := cfg.SummaryMessageFor(s); msgID != "" {
		if err := e.msgr.EditMessage(ctx, channelID, msgID, spec); err == nil {
			return nil
		} else {
			e.logger.Debug("summary edit failed, recreating",
				slog.String("workspace", workspaceID), slog.String("state", string(s)),
				slog.Any("err", err))
		}
	}

	msgID, err := e.msgr.SendMessage(ctx, channelID, spec)
	if err != nil {
		return fmt.Errorf("post summary for %s/%s: %w", workspaceID, s, ErrExternalUnavailable)
	}
	if _, err := e.ws.Upsert(workspaceID, workspace.SummaryMutation(s, msgID)); err != nil {
		return fmt.Errorf("persist summary id: %w", err)
	}
	return nil
}
