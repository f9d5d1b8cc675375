package workspace

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	workspace_id                   TEXT PRIMARY KEY,
	pending_channel_id             TEXT NOT NULL DEFAULT '',
	in_progress_channel_id         TEXT NOT NULL DEFAULT '',
	completed_channel_id           TEXT NOT NULL DEFAULT '',
	pending_summary_message_id     TEXT NOT NULL DEFAULT '',
	in_progress_summary_message_id TEXT NOT NULL DEFAULT '',
	completed_summary_message_id   TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore persists workspace configs in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the workspaces table exists. The caller is responsible for calling Close.
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

// Get returns the workspace's config, or a default-empty config for an
// unknown workspace.
func (s *SQLiteStore) Get(workspaceID string) (*Config, error) {
	row := s.db.QueryRow(`SELECT * FROM workspaces WHERE workspace_id=?`, workspaceID)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return &Config{WorkspaceID: workspaceID}, nil
	}
	return cfg, err
}

// Upsert creates or merges the workspace's config and returns the result.
func (s *SQLiteStore) Upsert(workspaceID string, mut Mutation) (*Config, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRow(`SELECT * FROM workspaces WHERE workspace_id=?`, workspaceID)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		cfg = &Config{WorkspaceID: workspaceID}
	} else if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&cfg.PendingChannelID, mut.PendingChannelID)
	apply(&cfg.InProgressChannelID, mut.InProgressChannelID)
	apply(&cfg.CompletedChannelID, mut.CompletedChannelID)
	apply(&cfg.PendingSummaryMessageID, mut.PendingSummaryMessageID)
	apply(&cfg.InProgressSummaryMessageID, mut.InProgressSummaryMessageID)
	apply(&cfg.CompletedSummaryMessageID, mut.CompletedSummaryMessageID)

	_, err = tx.Exec(`
		INSERT INTO workspaces
			(workspace_id, pending_channel_id, in_progress_channel_id, completed_channel_id,
			 pending_summary_message_id, in_progress_summary_message_id, completed_summary_message_id)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			pending_channel_id=excluded.pending_channel_id,
			in_progress_channel_id=excluded.in_progress_channel_id,
			completed_channel_id=excluded.completed_channel_id,
			pending_summary_message_id=excluded.pending_summary_message_id,
			in_progress_summary_message_id=excluded.in_progress_summary_message_id,
			completed_summary_message_id=excluded.completed_summary_message_id`,
		cfg.WorkspaceID, cfg.PendingChannelID, cfg.InProgressChannelID, cfg.CompletedChannelID,
		cfg.PendingSummaryMessageID, cfg.InProgressSummaryMessageID, cfg.CompletedSummaryMessageID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert workspace: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return cfg, nil
}

// List returns every known workspace config.
func (s *SQLiteStore) List() ([]*Config, error) {
	rows, err := s.db.Query(`SELECT * FROM workspaces ORDER BY workspace_id`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var configs []*Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanConfig.
type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(s scanner) (*Config, error) {
	var cfg Config
	err := s.Scan(
		&cfg.WorkspaceID,
		&cfg.PendingChannelID, &cfg.InProgressChannelID, &cfg.CompletedChannelID,
		&cfg.PendingSummaryMessageID, &cfg.InProgressSummaryMessageID, &cfg.CompletedSummaryMessageID,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
