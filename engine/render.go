package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GoCodeAlone/taskboard/messenger"
	"github.com/GoCodeAlone/taskboard/task"
)

const noAssignees = "No users assigned"

var titleCaser = cases.Title(language.English)

// stateTitle renders a lifecycle state for display: "In Progress".
func stateTitle(s task.State) string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// stateWords renders a lifecycle state in lowercase prose: "in progress".
func stateWords(s task.State) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// renderTask builds the abstract render instruction for a task's message.
// The field set and the per-state action set are the contract the platform
// renderer materializes; the engine never deals in markup.
func renderTask(t *task.Task) messenger.RenderSpec {
	assignees := noAssignees
	if len(t.AssignedUsers) > 0 {
		assignees = strings.Join(t.AssignedUsers, ", ")
	}
	return messenger.RenderSpec{
		Title:    t.Title,
		Body:     t.Description,
		ColorTag: t.State,
		Fields: []messenger.Field{
			{Name: "Status", Value: stateTitle(t.State), Inline: true},
			{Name: "Task ID", Value: t.ID, Inline: true},
			{Name: "Assigned Users", Value: assignees},
		},
		Actions: actionsFor(t.State),
	}
}

// actionsFor returns the affordances offered in each lifecycle state.
// Completed tasks only reopen or delete; active tasks carry the full set.
func actionsFor(s task.State) []messenger.Action {
	switch s {
	case task.StatePending:
		return []messenger.Action{
			{Tag: ActionStart, Label: "Start Task", Style: messenger.StylePrimary},
			{Tag: ActionComplete, Label: "Complete", Style: messenger.StyleSuccess},
			{Tag: ActionAssign, Label: "Select Users", Style: messenger.StyleSecondary},
			{Tag: ActionAssignMe, Label: "Assign to Me", Style: messenger.StyleSecondary},
			{Tag: ActionEdit, Label: "Edit Task", Style: messenger.StyleSecondary},
			{Tag: ActionDelete, Label: "Delete", Style: messenger.StyleDanger},
		}
	case task.StateInProgress:
		return []messenger.Action{
			{Tag: ActionComplete, Label: "Complete", Style: messenger.StyleSuccess},
			{Tag: ActionPause, Label: "Pause", Style: messenger.StyleSecondary},
			{Tag: ActionAssign, Label: "Select Users", Style: messenger.StyleSecondary},
			{Tag: ActionAssignMe, Label: "Assign to Me", Style: messenger.StyleSecondary},
			{Tag: ActionEdit, Label: "Edit Task", Style: messenger.StyleSecondary},
			{Tag: ActionDelete, Label: "Delete", Style: messenger.StyleDanger},
		}
	case task.StateCompleted:
		return []messenger.Action{
			{Tag: ActionReopen, Label: "Reopen", Style: messenger.StyleSecondary},
			{Tag: ActionDelete, Label: "Delete", Style: messenger.StyleDanger},
		}
	}
	return nil
}

// renderSummary builds the aggregate message for one (workspace, state) pair.
func renderSummary(s task.State, count int) messenger.RenderSpec {
	return messenger.RenderSpec{
		Title:    fmt.Sprintf("%s Tasks Summary", stateTitle(s)),
		Body:     fmt.Sprintf("Total %s tasks: %d", stateWords(s), count),
		ColorTag: s,
	}
}
