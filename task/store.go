package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                  TEXT PRIMARY KEY,
	workspace_id        TEXT NOT NULL,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	state               TEXT NOT NULL,
	assigned_users      TEXT NOT NULL DEFAULT '[]',
	rendered_message_id TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_workspace ON tasks(workspace_id);
CREATE INDEX IF NOT EXISTS idx_tasks_message ON tasks(rendered_message_id);
`

// SQLiteStore persists tasks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tasks table exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create persists a new task, setting CreatedAt and UpdatedAt.
func (s *SQLiteStore) Create(t *Task) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	assigned, _ := json.Marshal(t.AssignedUsers)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM tasks WHERE id=?)`, t.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check id: %w", err)
	}
	if exists {
		return fmt.Errorf("task %s: %w", t.ID, ErrDuplicateID)
	}

	_, err = tx.Exec(`
		INSERT INTO tasks
			(id, workspace_id, title, description, state, assigned_users, rendered_message_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.WorkspaceID, t.Title, t.Description, string(t.State),
		string(assigned), t.RenderedMessageID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return tx.Commit()
}

// Get retrieves a task by workspace and ID.
func (s *SQLiteStore) Get(workspaceID, id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE workspace_id=? AND id=?`, workspaceID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListByWorkspace returns all of a workspace's tasks in insertion order.
func (s *SQLiteStore) ListByWorkspace(workspaceID string) ([]*Task, error) {
	return s.list(`SELECT * FROM tasks WHERE workspace_id=? ORDER BY rowid`, workspaceID)
}

// ListByState returns a workspace's tasks in the given state, insertion order.
func (s *SQLiteStore) ListByState(workspaceID string, st State) ([]*Task, error) {
	return s.list(`SELECT * FROM tasks WHERE workspace_id=? AND state=? ORDER BY rowid`,
		workspaceID, string(st))
}

func (s *SQLiteStore) list(query string, args ...any) ([]*Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies a partial mutation inside a transaction and returns the
// updated task, so a failed write never leaves a half-applied record.
func (s *SQLiteStore) Update(id string, mut Mutation) (*Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRow(`SELECT * FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if mut.Title != nil {
		t.Title = *mut.Title
	}
	if mut.Description != nil {
		t.Description = *mut.Description
	}
	if mut.State != nil {
		t.State = *mut.State
	}
	if mut.AssignedUsers != nil {
		t.AssignedUsers = *mut.AssignedUsers
	}
	if mut.RenderedMessageID != nil {
		t.RenderedMessageID = *mut.RenderedMessageID
	}
	t.UpdatedAt = time.Now().UTC()

	assigned, _ := json.Marshal(t.AssignedUsers)
	_, err = tx.Exec(`
		UPDATE tasks SET
			title=?, description=?, state=?, assigned_users=?, rendered_message_id=?, updated_at=?
		WHERE id=?`,
		t.Title, t.Description, string(t.State), string(assigned),
		t.RenderedMessageID, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// Delete removes a task by ID. Absence is not an error.
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// GetByRenderedMessage finds the task represented by the given message.
func (s *SQLiteStore) GetByRenderedMessage(messageID string) (*Task, error) {
	if messageID == "" {
		return nil, fmt.Errorf("empty message id: %w", ErrNotFound)
	}
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE rendered_message_id=?`, messageID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return t, err
}

// DeleteByRenderedMessage removes the task represented by the given message
// and returns it. Returns (nil, nil) when no task matches.
func (s *SQLiteStore) DeleteByRenderedMessage(messageID string) (*Task, error) {
	if messageID == "" {
		return nil, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRow(`SELECT * FROM tasks WHERE rendered_message_id=?`, messageID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM tasks WHERE id=?`, t.ID); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var state, assignedJSON string

	err := s.Scan(
		&t.ID, &t.WorkspaceID, &t.Title, &t.Description, &state,
		&assignedJSON, &t.RenderedMessageID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.State = State(state)
	_ = json.Unmarshal([]byte(assignedJSON), &t.AssignedUsers)
	return &t, nil
}
