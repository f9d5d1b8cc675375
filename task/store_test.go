package task

import (
	"errors"
	"os"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "taskboard-task-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{
		ID:            "ws1_100_ab12",
		WorkspaceID:   "ws1",
		Title:         "Fix bug",
		Description:   "The login form crashes",
		State:         StatePending,
		AssignedUsers: []string{"u1", "u2"},
	}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tk.CreatedAt.IsZero() || tk.UpdatedAt.IsZero() {
		t.Error("Create did not set timestamps")
	}

	got, err := store.Get("ws1", tk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Fix bug" {
		t.Errorf("Title = %q, want %q", got.Title, "Fix bug")
	}
	if got.State != StatePending {
		t.Errorf("State = %q, want %q", got.State, StatePending)
	}
	if len(got.AssignedUsers) != 2 || got.AssignedUsers[0] != "u1" {
		t.Errorf("AssignedUsers = %v, want [u1 u2]", got.AssignedUsers)
	}
	if got.RenderedMessageID != "" {
		t.Errorf("RenderedMessageID = %q, want empty", got.RenderedMessageID)
	}
}

func TestSQLiteStore_CreateDuplicate(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{ID: "ws1_1_aa", WorkspaceID: "ws1", Title: "a", State: StatePending}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(&Task{ID: "ws1_1_aa", WorkspaceID: "ws1", Title: "b", State: StatePending})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Create duplicate = %v, want ErrDuplicateID", err)
	}
}

func TestSQLiteStore_GetWrongWorkspace(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{ID: "ws1_1_aa", WorkspaceID: "ws1", Title: "a", State: StatePending}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Get("ws2", tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get from other workspace = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_UpdatePartial(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{ID: "ws1_1_aa", WorkspaceID: "ws1", Title: "orig", Description: "desc", State: StatePending}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "renamed"
	got, err := store.Update(tk.ID, Mutation{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("Title = %q, want %q", got.Title, "renamed")
	}
	if got.Description != "desc" {
		t.Errorf("Description changed unexpectedly: %q", got.Description)
	}
	if got.State != StatePending {
		t.Errorf("State changed unexpectedly: %q", got.State)
	}

	st := StateInProgress
	msg := "m-42"
	got, err = store.Update(tk.ID, Mutation{State: &st, RenderedMessageID: &msg})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.State != StateInProgress || got.RenderedMessageID != "m-42" {
		t.Errorf("got state=%q msg=%q, want in_progress m-42", got.State, got.RenderedMessageID)
	}

	// Clearing the message reference.
	empty := ""
	got, err = store.Update(tk.ID, Mutation{RenderedMessageID: &empty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.RenderedMessageID != "" {
		t.Errorf("RenderedMessageID = %q, want empty", got.RenderedMessageID)
	}
}

func TestSQLiteStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	title := "x"
	if _, err := store.Update("nope", Mutation{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListOrderAndIsolation(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"ws1_1_a", "ws1_2_b", "ws1_3_c"} {
		if err := store.Create(&Task{ID: id, WorkspaceID: "ws1", Title: id, State: StatePending}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if err := store.Create(&Task{ID: "ws2_1_z", WorkspaceID: "ws2", Title: "other", State: StatePending}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, err := store.ListByWorkspace("ws1")
	if err != nil {
		t.Fatalf("ListByWorkspace: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	for i, want := range []string{"ws1_1_a", "ws1_2_b", "ws1_3_c"} {
		if tasks[i].ID != want {
			t.Errorf("tasks[%d].ID = %q, want %q", i, tasks[i].ID, want)
		}
	}
}

func TestSQLiteStore_ListByState(t *testing.T) {
	store := newTestStore(t)

	if err := store.Create(&Task{ID: "ws1_1_a", WorkspaceID: "ws1", Title: "a", State: StatePending}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(&Task{ID: "ws1_2_b", WorkspaceID: "ws1", Title: "b", State: StateCompleted}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pend, err := store.ListByState("ws1", StatePending)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if len(pend) != 1 || pend[0].ID != "ws1_1_a" {
		t.Errorf("pending = %v, want [ws1_1_a]", pend)
	}
	done, err := store.ListByState("ws1", StateCompleted)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if len(done) != 1 || done[0].ID != "ws1_2_b" {
		t.Errorf("completed = %v, want [ws1_2_b]", done)
	}
}

func TestSQLiteStore_DeleteIdempotent(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{ID: "ws1_1_a", WorkspaceID: "ws1", Title: "a", State: StatePending}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(tk.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(tk.ID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := store.Get("ws1", tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ByRenderedMessage(t *testing.T) {
	store := newTestStore(t)

	tk := &Task{ID: "ws1_1_a", WorkspaceID: "ws1", Title: "a", State: StatePending, RenderedMessageID: "m-1"}
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := &Task{ID: "ws1_2_b", WorkspaceID: "ws1", Title: "b", State: StatePending, RenderedMessageID: "m-2"}
	if err := store.Create(other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByRenderedMessage("m-1")
	if err != nil {
		t.Fatalf("GetByRenderedMessage: %v", err)
	}
	if got.ID != tk.ID {
		t.Errorf("ID = %q, want %q", got.ID, tk.ID)
	}

	removed, err := store.DeleteByRenderedMessage("m-1")
	if err != nil {
		t.Fatalf("DeleteByRenderedMessage: %v", err)
	}
	if removed == nil || removed.ID != tk.ID {
		t.Fatalf("removed = %v, want task %s", removed, tk.ID)
	}

	// No match is not an error.
	removed, err = store.DeleteByRenderedMessage("m-1")
	if err != nil || removed != nil {
		t.Fatalf("second DeleteByRenderedMessage = (%v, %v), want (nil, nil)", removed, err)
	}

	// The other task is untouched.
	if _, err := store.Get("ws1", other.ID); err != nil {
		t.Fatalf("other task gone: %v", err)
	}

	// Unrendered tasks must never match the empty id.
	if _, err := store.GetByRenderedMessage(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByRenderedMessage(\"\") = %v, want ErrNotFound", err)
	}
}
