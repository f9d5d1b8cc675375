// Command taskboard is the Taskboard CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskboard/internal/version"
	"github.com/GoCodeAlone/taskboard/update"
)

const defaultServer = "http://localhost:9090"

func main() {
	var (
		serverURL   = flag.String("server", defaultServer, "taskboard server URL")
		token       = flag.String("token", os.Getenv("TASKBOARD_TOKEN"), "JWT auth token")
		workspaceID = flag.String("workspace", os.Getenv("TASKBOARD_WORKSPACE"), "workspace id")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		Workspace:  *workspaceID,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "workspaces":
		err = cli.cmdWorkspaces(rest)
	case "channels":
		err = cli.cmdChannels(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "summaries":
		err = cli.cmdSummaries(rest)
	case "update":
		err = cmdUpdate(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskboard — Taskboard CLI

Usage:
  taskboard [flags] <command> [args]

Flags:
  --server     <url>    server URL (default: http://localhost:9090)
  --token      <token>  JWT auth token (or $TASKBOARD_TOKEN)
  --workspace  <id>     workspace id (or $TASKBOARD_WORKSPACE)

Commands:
  version                               print version
  status                                show server status
  workspaces                            list configured workspaces
  channels set <pending> <prog> <done>  bind the three state channels
  tasks [state]                         list tasks, optionally by state
  task create <title>                   create a task
  task move <id> <state>                transition a task
  task assign <id> <user>               assign a user
  task unassign <id> <user>             unassign a user
  task delete <id>                      delete a task
  summaries refresh                     republish every summary
  update                                self-update to the latest release
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("taskboard %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// --- update ---

func cmdUpdate(_ []string) error {
	u := update.New(version.Version)
	rel, err := u.CheckForUpdate()
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Println("already up to date")
		return nil
	}
	fmt.Printf("updating to %s...\n", rel.Version)
	if err := u.ApplyUpdate(rel); err != nil {
		return err
	}
	fmt.Println("updated; restart to use the new version")
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	Workspace  string
	HTTPClient *http.Client
}

func (c *Client) requireWorkspace() error {
	if c.Workspace == "" {
		return fmt.Errorf("a workspace is required: pass --workspace or set $TASKBOARD_WORKSPACE")
	}
	return nil
}

// do performs a request with the given method and decodes JSON into v (may be nil).
func (c *Client) do(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) get(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

func (c *Client) post(path string, body io.Reader, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- workspaces ---

func (c *Client) cmdWorkspaces(_ []string) error {
	var configs []map[string]any
	if err := c.get("/api/workspaces", &configs); err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("no workspaces configured")
		return nil
	}
	fmt.Printf("%-20s %-16s %-16s %-16s\n", "WORKSPACE", "PENDING", "IN PROGRESS", "COMPLETED")
	fmt.Println(strings.Repeat("-", 72))
	for _, cfg := range configs {
		fmt.Printf("%-20s %-16s %-16s %-16s\n",
			strVal(cfg["workspace_id"]),
			strVal(cfg["pending_channel_id"]),
			strVal(cfg["in_progress_channel_id"]),
			strVal(cfg["completed_channel_id"]),
		)
	}
	return nil
}

// --- channels ---

func (c *Client) cmdChannels(args []string) error {
	if len(args) != 4 || args[0] != "set" {
		return fmt.Errorf("usage: taskboard channels set <pending> <in-progress> <completed>")
	}
	if err := c.requireWorkspace(); err != nil {
		return err
	}
	body := fmt.Sprintf(`{"pending":%q,"in_progress":%q,"completed":%q}`, args[1], args[2], args[3])
	req, err := http.NewRequest(http.MethodPut,
		c.BaseURL+"/api/workspaces/"+c.Workspace+"/channels", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	fmt.Printf("channels bound for workspace %s\n", c.Workspace)
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	if err := c.requireWorkspace(); err != nil {
		return err
	}
	path := "/api/workspaces/" + c.Workspace + "/tasks"
	if len(args) > 0 {
		path += "?state=" + args[0]
	}
	var tasks []map[string]any
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-28s %-30s %-12s %s\n", "ID", "TITLE", "STATE", "ASSIGNED")
	fmt.Println(strings.Repeat("-", 90))
	for _, t := range tasks {
		assigned := ""
		if users, ok := t["assigned_users"].([]any); ok {
			parts := make([]string, 0, len(users))
			for _, u := range users {
				parts = append(parts, strVal(u))
			}
			assigned = strings.Join(parts, ", ")
		}
		fmt.Printf("%-28s %-30s %-12s %s\n",
			truncate(strVal(t["id"]), 27),
			truncate(strVal(t["title"]), 29),
			strVal(t["state"]),
			assigned,
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: taskboard task <create|move|assign|unassign|delete> ...")
	}
	if err := c.requireWorkspace(); err != nil {
		return err
	}
	base := "/api/workspaces/" + c.Workspace + "/tasks"

	sub := args[0]
	switch sub {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskboard task create <title>")
		}
		title := strings.Join(args[1:], " ")
		body := fmt.Sprintf(`{"title":%q}`, title)
		var result map[string]any
		if err := c.post(base, strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "move":
		if len(args) != 3 {
			return fmt.Errorf("usage: taskboard task move <id> <state>")
		}
		body := fmt.Sprintf(`{"state":%q}`, args[2])
		if err := c.post(base+"/"+args[1]+"/transition", strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s moved to %s\n", args[1], args[2])
	case "assign", "unassign":
		if len(args) != 3 {
			return fmt.Errorf("usage: taskboard task %s <id> <user>", sub)
		}
		body := fmt.Sprintf(`{"user_id":%q}`, args[2])
		var result map[string]string
		if err := c.post(base+"/"+args[1]+"/"+sub, strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("task %s: %s\n", args[1], result["result"])
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: taskboard task delete <id>")
		}
		if err := c.do(http.MethodDelete, base+"/"+args[1], nil, nil); err != nil {
			return err
		}
		fmt.Printf("deleted task %s\n", args[1])
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- summaries ---

func (c *Client) cmdSummaries(args []string) error {
	if len(args) != 1 || args[0] != "refresh" {
		return fmt.Errorf("usage: taskboard summaries refresh")
	}
	if err := c.requireWorkspace(); err != nil {
		return err
	}
	if err := c.post("/api/workspaces/"+c.Workspace+"/summaries/refresh", nil, nil); err != nil {
		return err
	}
	fmt.Printf("summaries refreshed for workspace %s\n", c.Workspace)
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
