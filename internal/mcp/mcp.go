// Package mcp provides the gitship MCP server, registering the ship tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/gitship"
	"github.com/deixis/gitship/internal/logging"
	"github.com/deixis/gitship/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex
	workspace string // default workspace; updated from client roots
	store     report.Store
	logger    *slog.Logger
}

// NewServer creates an MCP server with all gitship tools registered.
// workspace is used whenever a tool call does not name one.
func NewServer(store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	if so.logger == nil {
		so.logger = logging.Discard()
	}

	h := &handler{
		workspace: workspace,
		store:     store,
		logger:    so.logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "gitship", Version: gitship.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ship_plan",
		Description: "Show the steps ship_run would execute in a workspace (command, failure policy), without running anything.",
	}, h.planHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ship_run",
		Description: `Stage every change, commit it and push it: git status, add -A, commit, push, log.

status, add and commit stop the run on failure. A failed push only warns, and the
log step always runs after it. The transcript and a run ID are returned; drill into
a step with ship_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ship_inspect",
		Description: `Drill into a ship_run result.

Use the run_id from the ship_run output. Without a step, every step is summarised;
with a step name (status, add, commit, push, log) its full output is returned.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the gitship MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
}

// WithLogger attaches a diagnostic logger to the server.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

func (h *handler) defaultWorkspace() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.workspace
}

// updateWorkspaceFromRoots queries the client for MCP roots and makes the
// first file root the default workspace.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	h.mu.Lock()
	h.workspace = u.Path
	h.mu.Unlock()
	h.logger.Debug("workspace updated from client roots", "workspace", u.Path)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
