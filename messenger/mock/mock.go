// Package mock provides an in-memory messenger for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/taskboard/messenger"
)

// Message is one stored message with its rendered content.
type Message struct {
	ID             string
	ChannelID      string
	Spec           messenger.RenderSpec
	SystemAuthored bool
	Edits          int
}

// Messenger implements messenger.Messenger against in-process state.
// Failure injection fields let tests simulate an unavailable platform.
type Messenger struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]*Message
	channel map[string][]*Message // insertion order per channel

	// When set, the corresponding call fails with this error.
	FailSend   error
	FailEdit   error
	FailDelete error
	FailList   error

	// Deleted records every message id passed to DeleteMessage, in order,
	// including deletes of already-absent messages.
	Deleted []string
}

// New creates an empty mock messenger.
func New() *Messenger {
	return &Messenger{
		byID:    make(map[string]*Message),
		channel: make(map[string][]*Message),
	}
}

// SendMessage stores a new message and returns its id.
func (m *Messenger) SendMessage(_ context.Context, channelID string, spec messenger.RenderSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend != nil {
		return "", m.FailSend
	}
	m.nextID++
	msg := &Message{
		ID:             fmt.Sprintf("m-%d", m.nextID),
		ChannelID:      channelID,
		Spec:           spec,
		SystemAuthored: true,
	}
	m.byID[msg.ID] = msg
	m.channel[channelID] = append(m.channel[channelID], msg)
	return msg.ID, nil
}

// EditMessage replaces a stored message's spec in place.
func (m *Messenger) EditMessage(_ context.Context, channelID, messageID string, spec messenger.RenderSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEdit != nil {
		return m.FailEdit
	}
	msg, ok := m.byID[messageID]
	if !ok || msg.ChannelID != channelID {
		return fmt.Errorf("edit %s: %w", messageID, messenger.ErrMessageNotFound)
	}
	msg.Spec = spec
	msg.Edits++
	return nil
}

// DeleteMessage removes a stored message.
func (m *Messenger) DeleteMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete != nil {
		return m.FailDelete
	}
	m.Deleted = append(m.Deleted, messageID)
	msg, ok := m.byID[messageID]
	if !ok || msg.ChannelID != channelID {
		return fmt.Errorf("delete %s: %w", messageID, messenger.ErrMessageNotFound)
	}
	delete(m.byID, messageID)
	msgs := m.channel[channelID]
	filtered := msgs[:0]
	for _, c := range msgs {
		if c.ID != messageID {
			filtered = append(filtered, c)
		}
	}
	m.channel[channelID] = filtered
	return nil
}

// ListRecentMessages returns up to limit messages, newest first.
func (m *Messenger) ListRecentMessages(_ context.Context, channelID string, limit int) ([]messenger.MessageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList != nil {
		return nil, m.FailList
	}
	msgs := m.channel[channelID]
	var infos []messenger.MessageInfo
	for i := len(msgs) - 1; i >= 0; i-- {
		infos = append(infos, messenger.MessageInfo{
			ID:             msgs[i].ID,
			SystemAuthored: msgs[i].SystemAuthored,
		})
		if limit > 0 && len(infos) >= limit {
			break
		}
	}
	return infos, nil
}

// Message returns the stored message by id, or nil.
func (m *Messenger) Message(id string) *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// ChannelMessages returns the channel's messages in insertion order.
func (m *Messenger) ChannelMessages(channelID string) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.channel[channelID]...)
}

// Inject stores a message directly, bypassing SendMessage. Tests use it to
// plant foreign or user-authored messages in a channel.
func (m *Messenger) Inject(channelID, messageID string, systemAuthored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &Message{ID: messageID, ChannelID: channelID, SystemAuthored: systemAuthored}
	m.byID[messageID] = msg
	m.channel[channelID] = append(m.channel[channelID], msg)
}
