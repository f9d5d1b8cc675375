// Package api implements the REST handlers for the admin API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/GoCodeAlone/taskboard/engine"
	"github.com/GoCodeAlone/taskboard/events"
	"github.com/GoCodeAlone/taskboard/task"
	"github.com/GoCodeAlone/taskboard/workspace"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Engine     *engine.Engine
	Tasks      task.Store
	Workspaces workspace.Store
	Bus        events.Bus
	Logger     *slog.Logger
	Version    string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workspaces", h.listWorkspaces)
	mux.HandleFunc("GET /api/workspaces/{ws}", h.getWorkspace)
	mux.HandleFunc("PUT /api/workspaces/{ws}/channels", h.configureChannels)
	mux.HandleFunc("POST /api/workspaces/{ws}/summaries/refresh", h.refreshSummaries)
	mux.HandleFunc("GET /api/workspaces/{ws}/events", h.listEvents)

	mux.HandleFunc("GET /api/workspaces/{ws}/tasks", h.listTasks)
	mux.HandleFunc("POST /api/workspaces/{ws}/tasks", h.createTask)
	mux.HandleFunc("GET /api/workspaces/{ws}/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/workspaces/{ws}/tasks/{id}", h.editTask)
	mux.HandleFunc("DELETE /api/workspaces/{ws}/tasks/{id}", h.deleteTask)
	mux.HandleFunc("POST /api/workspaces/{ws}/tasks/{id}/transition", h.transitionTask)
	mux.HandleFunc("POST /api/workspaces/{ws}/tasks/{id}/assign", h.assignUser)
	mux.HandleFunc("POST /api/workspaces/{ws}/tasks/{id}/unassign", h.unassignUser)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, task.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNotConfigured),
		errors.Is(err, engine.ErrChannelNotConfigured):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrExternalUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Workspace handlers ---

func (h *Handlers) listWorkspaces(w http.ResponseWriter, _ *http.Request) {
	configs, err := h.Workspaces.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if configs == nil {
		configs = []*workspace.Config{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (h *Handlers) getWorkspace(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Workspaces.Get(r.PathValue("ws"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type configureChannelsRequest struct {
	Pending    string `json:"pending"`
	InProgress string `json:"in_progress"`
	Completed  string `json:"completed"`
}

func (h *Handlers) configureChannels(w http.ResponseWriter, r *http.Request) {
	var req configureChannelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	cfg, err := h.Engine.ConfigureChannels(r.Context(), r.PathValue("ws"),
		req.Pending, req.InProgress, req.Completed)
	if err != nil {
		if req.Pending == "" || req.InProgress == "" || req.Completed == "" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) refreshSummaries(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.RefreshAllSummaries(r.Context(), r.PathValue("ws")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}
	evs := h.Bus.History(r.PathValue("ws"), limit)
	if evs == nil {
		evs = []*events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// --- Task handlers ---

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("ws")

	var tasks []*task.Task
	var err error
	if s := r.URL.Query().Get("state"); s != "" {
		state := task.State(s)
		if !state.Valid() {
			writeError(w, http.StatusBadRequest, "invalid state: "+s)
			return
		}
		tasks, err = h.Tasks.ListByState(workspaceID, state)
	} else {
		tasks, err = h.Tasks.ListByWorkspace(workspaceID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	t, err := h.Engine.CreateTask(r.Context(), r.PathValue("ws"), req.Title, req.Description)
	if err != nil && !errors.Is(err, engine.ErrExternalUnavailable) {
		writeEngineError(w, err)
		return
	}
	// A task created but not rendered is still created.
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.PathValue("ws"), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type editTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handlers) editTask(w http.ResponseWriter, r *http.Request) {
	var req editTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.Engine.EditTask(r.Context(), r.PathValue("ws"), r.PathValue("id"), req.Title, req.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteTask(r.Context(), r.PathValue("ws"), r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	State task.State `json:"state"`
}

func (h *Handlers) transitionTask(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.State.Valid() {
		writeError(w, http.StatusBadRequest, "invalid state: "+string(req.State))
		return
	}
	t, err := h.Engine.Transition(r.Context(), r.PathValue("ws"), r.PathValue("id"), req.State)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type assignRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handlers) assignUser(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	res, err := h.Engine.AssignUser(r.Context(), r.PathValue("ws"), r.PathValue("id"), req.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": string(res)})
}

func (h *Handlers) unassignUser(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	res, err := h.Engine.UnassignUser(r.Context(), r.PathValue("ws"), r.PathValue("id"), req.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": string(res)})
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
