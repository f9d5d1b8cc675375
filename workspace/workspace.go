// Package workspace holds per-workspace channel bindings and summary state.
package workspace

import "github.com/GoCodeAlone/taskboard/task"

// Config is one workspace's channel configuration. A lifecycle state with an
// empty channel id is unbound; tasks cannot enter it until a channel is set.
// Summary message ids are assigned lazily the first time a summary is posted.
type Config struct {
	WorkspaceID string `json:"workspace_id"`

	PendingChannelID    string `json:"pending_channel_id,omitempty"`
	InProgressChannelID string `json:"in_progress_channel_id,omitempty"`
	CompletedChannelID  string `json:"completed_channel_id,omitempty"`

	PendingSummaryMessageID    string `json:"pending_summary_message_id,omitempty"`
	InProgressSummaryMessageID string `json:"in_progress_summary_message_id,omitempty"`
	CompletedSummaryMessageID  string `json:"completed_summary_message_id,omitempty"`
}

// ChannelFor returns the channel bound to the given state, or "".
func (c *Config) ChannelFor(s task.State) string {
	switch s {
	case task.StatePending:
		return c.PendingChannelID
	case task.StateInProgress:
		return c.InProgressChannelID
	case task.StateCompleted:
		return c.CompletedChannelID
	}
	return ""
}

// SummaryMessageFor returns the summary message id for the given state, or "".
func (c *Config) SummaryMessageFor(s task.State) string {
	switch s {
	case task.StatePending:
		return c.PendingSummaryMessageID
	case task.StateInProgress:
		return c.InProgressSummaryMessageID
	case task.StateCompleted:
		return c.CompletedSummaryMessageID
	}
	return ""
}

// Mutation is a partial update merged by Store.Upsert. Nil fields keep their
// stored value; empty strings clear it.
type Mutation struct {
	PendingChannelID    *string
	InProgressChannelID *string
	CompletedChannelID  *string

	PendingSummaryMessageID    *string
	InProgressSummaryMessageID *string
	CompletedSummaryMessageID  *string
}

// ChannelMutation returns a mutation binding all three state channels.
func ChannelMutation(pending, inProgress, completed string) Mutation {
	return Mutation{
		PendingChannelID:    &pending,
		InProgressChannelID: &inProgress,
		CompletedChannelID:  &completed,
	}
}

// SummaryMutation returns a mutation recording a state's summary message id.
func SummaryMutation(s task.State, messageID string) Mutation {
	var mut Mutation
	switch s {
	case task.StatePending:
		mut.PendingSummaryMessageID = &messageID
	case task.StateInProgress:
		mut.InProgressSummaryMessageID = &messageID
	case task.StateCompleted:
		mut.CompletedSummaryMessageID = &messageID
	}
	return mut
}

// Store persists workspace configurations. Same durability discipline as the
// task store: every mutation is committed before Upsert returns.
type Store interface {
	// Get returns the workspace's config, or a default-empty config when the
	// workspace has never been configured.
	Get(workspaceID string) (*Config, error)

	// Upsert creates or merges the workspace's config and returns the result.
	Upsert(workspaceID string, mut Mutation) (*Config, error)

	// List returns every known workspace config.
	List() ([]*Config, error)
}
