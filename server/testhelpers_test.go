package server

import (
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

// noopTaskStore satisfies task.Store for tests.
type noopTaskStore struct{}

func (n *noopTaskStore) Create(_ *task.Task) error { return nil }
func (n *noopTaskStore) Get(_, _ string) (*task.Task, error) {
	return &task.Task{ID: "test-id"}, nil
}
func (n *noopTaskStore) ListByWorkspace(_ string) ([]*task.Task, error) { return nil, nil }
func (n *noopTaskStore) ListByState(_ string, _ task.State) ([]*task.Task, error) {
	return nil, nil
}
func (n *noopTaskStore) Update(_ string, _ task.Mutation) (*task.Task, error) {
	return &task.Task{ID: "test-id"}, nil
}
func (n *noopTaskStore) Delete(_ string) error { return nil }
func (n *noopTaskStore) GetByRenderedMessage(_ string) (*task.Task, error) {
	return nil, task.ErrNotFound
}
func (n *noopTaskStore) DeleteByRenderedMessage(_ string) (*task.Task, error) {
	return nil, nil
}

// noopWorkspaceStore satisfies workspace.Store for tests.
type noopWorkspaceStore struct{}

func (n *noopWorkspaceStore) Get(workspaceID string) (*workspace.Config, error) {
	return &workspace.Config{WorkspaceID: workspaceID}, nil
}
func (n *noopWorkspaceStore) Upsert(workspaceID string, _ workspace.Mutation) (*workspace.Config, error) {
	return &workspace.Config{WorkspaceID: workspaceID}, nil
}
func (n *noopWorkspaceStore) List() ([]*workspace.Config, error) { return nil, nil }
