package engine

import (
	"testing"

	"github.com/GoCodeAlone/taskboard/task"
)

func TestRenderTask(t *testing.T) {
	spec := renderTask(&task.Task{
		ID:            "ws1_1_abc",
		Title:         "Fix bug",
		Description:   "Login fails",
		State:         task.StateInProgress,
		AssignedUsers: []string{"u1", "u2"},
	})
	if spec.Title != "Fix bug" || spec.Body != "Login fails" {
		t.Errorf("spec = %+v", spec)
	}
	if spec.ColorTag != task.StateInProgress {
		t.Errorf("ColorTag = %q", spec.ColorTag)
	}
	fields := map[string]string{}
	for _, f := range spec.Fields {
		fields[f.Name] = f.Value
	}
	if fields["Status"] != "In Progress" {
		t.Errorf("Status field = %q", fields["Status"])
	}
	if fields["Task ID"] != "ws1_1_abc" {
		t.Errorf("Task ID field = %q", fields["Task ID"])
	}
	if fields["Assigned Users"] != "u1, u2" {
		t.Errorf("Assigned Users field = %q", fields["Assigned Users"])
	}
}

func TestRenderTask_NoAssignees(t *testing.T) {
	spec := renderTask(&task.Task{ID: "ws1_1_abc", Title: "T", State: task.StatePending})
	for _, f := range spec.Fields {
		if f.Name == "Assigned Users" && f.Value != noAssignees {
			t.Errorf("Assigned Users field = %q", f.Value)
		}
	}
}

func TestActionsPerState(t *testing.T) {
	pending := actionsFor(task.StatePending)
	if len(pending) != 6 || pending[0].Tag != ActionStart {
		t.Errorf("pending actions = %v", pending)
	}
	inProgress := actionsFor(task.StateInProgress)
	if len(inProgress) != 6 || inProgress[1].Tag != ActionPause {
		t.Errorf("in-progress actions = %v", inProgress)
	}
	completed := actionsFor(task.StateCompleted)
	if len(completed) != 2 || completed[0].Tag != ActionReopen {
		t.Errorf("completed actions = %v", completed)
	}
	for _, a := range completed {
		if a.Tag == ActionStart || a.Tag == ActionComplete {
			t.Errorf("completed tasks must not offer %s", a.Tag)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	spec := renderSummary(task.StateInProgress, 3)
	if spec.Title != "In Progress Tasks Summary" {
		t.Errorf("Title = %q", spec.Title)
	}
	if spec.Body != "Total in progress tasks: 3" {
		t.Errorf("Body = %q", spec.Body)
	}
}
