// Package rest implements messenger.Messenger against a JSON gateway API.
// The gateway sidecar owns the platform connection; this client only speaks
// its REST surface and spaces requests to stay under platform rate limits.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskboard/messenger"
	"github.com/GoCodeAlone/taskboard/task"
)

const (
	defaultMinInterval = 100 * time.Millisecond
	defaultTimeout     = 30 * time.Second
)

// Accent colors per lifecycle state, in platform RGB.
var stateColors = map[task.State]int{
	task.StatePending:    0xFFD700,
	task.StateInProgress: 0xFF8C00,
	task.StateCompleted:  0x43B581,
}

// Config holds configuration for the gateway client.
type Config struct {
	BaseURL     string
	Token       string
	HTTPClient  *http.Client
	MinInterval time.Duration // minimum spacing between requests
}

// Gateway is an HTTP messenger client. All calls are serialized through a
// request-spacing gate so bursts of renders respect the platform's limits.
type Gateway struct {
	cfg  Config
	gate chan struct{}
	last time.Time
}

// New creates a Gateway from the given config, filling in defaults.
func New(cfg Config) *Gateway {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	g := &Gateway{cfg: cfg, gate: make(chan struct{}, 1)}
	g.gate <- struct{}{}
	return g
}

// wireMessage is the gateway's message payload.
type wireMessage struct {
	Title   string            `json:"title"`
	Body    string            `json:"body,omitempty"`
	Color   int               `json:"color"`
	Fields  []messenger.Field `json:"fields,omitempty"`
	Actions []wireAction      `json:"actions,omitempty"`
}

type wireAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Style string `json:"style,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func toWire(spec messenger.RenderSpec) wireMessage {
	msg := wireMessage{
		Title:  spec.Title,
		Body:   spec.Body,
		Color:  stateColors[spec.ColorTag],
		Fields: make([]messenger.Field, len(spec.Fields)),
	}
	for i, f := range spec.Fields {
		f.Value = formatMentions(f.Value)
		msg.Fields[i] = f
	}
	for _, a := range spec.Actions {
		msg.Actions = append(msg.Actions, wireAction{
			ID:    a.Tag,
			Label: a.Label,
			Style: string(a.Style),
		})
	}
	return msg
}

// formatMentions rewrites fully-numeric tokens in a comma-separated value as
// platform user mentions, leaving free-text names untouched.
func formatMentions(value string) string {
	parts := strings.Split(value, ", ")
	changed := false
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = "<@" + p + ">"
			changed = true
		}
	}
	if !changed {
		return value
	}
	return strings.Join(parts, ", ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SendMessage posts a new message and returns its id.
func (g *Gateway) SendMessage(ctx context.Context, channelID string, spec messenger.RenderSpec) (string, error) {
	var resp sendResponse
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	if err := g.do(ctx, http.MethodPost, path, toWire(spec), &resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// EditMessage replaces an existing message's content.
func (g *Gateway) EditMessage(ctx context.Context, channelID, messageID string, spec messenger.RenderSpec) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := g.do(ctx, http.MethodPatch, path, toWire(spec), nil); err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	return nil
}

// DeleteMessage removes a message.
func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if err := g.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

// ListRecentMessages returns up to limit of the channel's most recent messages.
func (g *Gateway) ListRecentMessages(ctx context.Context, channelID string, limit int) ([]messenger.MessageInfo, error) {
	var infos []messenger.MessageInfo
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if err := g.do(ctx, http.MethodGet, path, nil, &infos); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return infos, nil
}

// do performs one spaced HTTP request, encoding body and decoding into out.
func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	if err := g.space(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return messenger.ErrMessageNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// space blocks until at least MinInterval has passed since the last request.
func (g *Gateway) space(ctx context.Context) error {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { g.gate <- struct{}{} }()

	if wait := g.cfg.MinInterval - time.Since(g.last); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.last = time.Now()
	return nil
}
