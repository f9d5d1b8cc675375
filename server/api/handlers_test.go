package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/GoCodeAlone/taskboard/engine"
	"github.com/GoCodeAlone/taskboard/events"
	"github.com/GoCodeAlone/taskboard/messenger/mock"
	"github.com/GoCodeAlone/taskboard/server/api"
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

type env struct {
	mux   *http.ServeMux
	tasks *task.SQLiteStore
	ws    *workspace.SQLiteStore
	msgr  *mock.Messenger
}

func newEnv(t *testing.T) *env {
	t.Helper()

	newDB := func(pattern string) string {
		f, err := os.CreateTemp("", pattern)
		if err != nil {
			t.Fatalf("create temp file: %v", err)
		}
		f.Close()
		t.Cleanup(func() { os.Remove(f.Name()) })
		return f.Name()
	}

	tasks, err := task.NewSQLiteStore(newDB("taskboard-tasks-*.db"))
	if err != nil {
		t.Fatalf("task store: %v", err)
	}
	t.Cleanup(func() { tasks.Close() })

	ws, err := workspace.NewSQLiteStore(newDB("taskboard-ws-*.db"))
	if err != nil {
		t.Fatalf("workspace store: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	msgr := mock.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(tasks, ws, msgr, logger)

	h := &api.Handlers{
		Engine:     eng,
		Tasks:      tasks,
		Workspaces: ws,
		Bus:        events.NewInMemoryBus(),
		Logger:     logger,
		Version:    "test",
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &env{mux: mux, tasks: tasks, ws: ws, msgr: msgr}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func (e *env) configure(t *testing.T, workspaceID string) {
	t.Helper()
	rr := e.do(t, http.MethodPut, "/api/workspaces/"+workspaceID+"/channels", map[string]string{
		"pending":     "c-pending",
		"in_progress": "c-progress",
		"completed":   "c-done",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("configure channels: %d: %s", rr.Code, rr.Body.String())
	}
}

func (e *env) createTask(t *testing.T, workspaceID, title string) *task.Task {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/workspaces/"+workspaceID+"/tasks", map[string]string{
		"title": title,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create task: %d: %s", rr.Code, rr.Body.String())
	}
	var created task.Task
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return &created
}

func TestCreateAndGetTask(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")

	created := e.createTask(t, "ws1", "Fix bug")
	if created.State != task.StatePending {
		t.Errorf("State = %q", created.State)
	}

	rr := e.do(t, http.MethodGet, fmt.Sprintf("/api/workspaces/ws1/tasks/%s", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get task: %d", rr.Code)
	}
	var got task.Task
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Fix bug" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestCreateTask_Unconfigured(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodPost, "/api/workspaces/ws1/tasks", map[string]string{"title": "X"})
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateTask_MissingTitle(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")

	rr := e.do(t, http.MethodPost, "/api/workspaces/ws1/tasks", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/api/workspaces/ws1/tasks/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestListTasks_StateFilter(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")
	first := e.createTask(t, "ws1", "One")
	e.createTask(t, "ws1", "Two")

	rr := e.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/ws1/tasks/%s/transition", first.ID),
		map[string]string{"state": "in_progress"})
	if rr.Code != http.StatusOK {
		t.Fatalf("transition: %d: %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, http.MethodGet, "/api/workspaces/ws1/tasks?state=pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var listed []*task.Task
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Two" {
		t.Errorf("pending list = %+v", listed)
	}

	rr = e.do(t, http.MethodGet, "/api/workspaces/ws1/tasks?state=bogus", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bogus state filter: %d", rr.Code)
	}
}

func TestTransition_InvalidState(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")
	created := e.createTask(t, "ws1", "Fix bug")

	rr := e.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/ws1/tasks/%s/transition", created.ID),
		map[string]string{"state": "archived"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAssignAndUnassign(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")
	created := e.createTask(t, "ws1", "Fix bug")

	rr := e.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/ws1/tasks/%s/assign", created.ID),
		map[string]string{"user_id": "u1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("assign: %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp) //nolint:errcheck
	if resp["result"] != string(engine.Assigned) {
		t.Errorf("result = %q", resp["result"])
	}

	rr = e.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/ws1/tasks/%s/unassign", created.ID),
		map[string]string{"user_id": "u1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("unassign: %d", rr.Code)
	}

	rr = e.do(t, http.MethodPost, fmt.Sprintf("/api/workspaces/ws1/tasks/%s/assign", created.ID),
		map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing user_id: %d", rr.Code)
	}
}

func TestEditTask(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")
	created := e.createTask(t, "ws1", "Fix bug")

	rr := e.do(t, http.MethodPatch, fmt.Sprintf("/api/workspaces/ws1/tasks/%s", created.ID),
		map[string]string{"title": "Fix login bug"})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit: %d: %s", rr.Code, rr.Body.String())
	}
	var got task.Task
	json.NewDecoder(rr.Body).Decode(&got) //nolint:errcheck
	if got.Title != "Fix login bug" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Description != created.Description {
		t.Errorf("Description changed: %q", got.Description)
	}
}

func TestDeleteTask(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")
	created := e.createTask(t, "ws1", "Fix bug")

	rr := e.do(t, http.MethodDelete, fmt.Sprintf("/api/workspaces/ws1/tasks/%s", created.ID), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}

	rr = e.do(t, http.MethodGet, fmt.Sprintf("/api/workspaces/ws1/tasks/%s", created.ID), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestWorkspaceEndpoints(t *testing.T) {
	e := newEnv(t)
	e.configure(t, "ws1")

	rr := e.do(t, http.MethodGet, "/api/workspaces", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list workspaces: %d", rr.Code)
	}
	var configs []*workspace.Config
	if err := json.NewDecoder(rr.Body).Decode(&configs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(configs) != 1 || configs[0].PendingChannelID != "c-pending" {
		t.Errorf("configs = %+v", configs)
	}

	rr = e.do(t, http.MethodPut, "/api/workspaces/ws2/channels", map[string]string{
		"pending": "only",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("partial channels: %d", rr.Code)
	}

	rr = e.do(t, http.MethodPost, "/api/workspaces/ws1/summaries/refresh", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("refresh summaries: %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStatusAndVersion(t *testing.T) {
	e := newEnv(t)

	rr := e.do(t, http.MethodGet, "/api/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp) //nolint:errcheck
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("status = %v", resp)
	}

	rr = e.do(t, http.MethodGet, "/api/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("version: %d", rr.Code)
	}
}
