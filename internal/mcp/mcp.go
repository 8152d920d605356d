// Package mcp provides the sprinter MCP server. It is the host integration
// layer: editors pass the selected sprint line and workspace explicitly as
// tool arguments and MCP roots.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/deixis/sprinter"
	"github.com/deixis/sprinter/internal/config"
	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/workflow"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.Mutex
	engine *workflow.Engine
	store  report.Store
	log    zerolog.Logger
}

// NewServer creates an MCP server with all sprinter tools registered.
func NewServer(engine *workflow.Engine, store report.Store, log zerolog.Logger) *mcp.Server {
	h := &handler{
		engine: engine,
		store:  store,
		log:    log,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "sprinter", Version: sprinter.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "sprint_run",
		Description: `Run one sprint line through the project's sprint script.

Pass the line the user selected in the editor. The script runs with the line and a model
token as arguments; its output artifact (last_sprint_output.txt) is returned when present.
Results are stored for drill-down via sprint_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "sprint_queue",
		Description: `Run every line of one or more task queue files through the sprint script, in order.

Blank lines and lines starting with # are ignored. Defaults to the configured queue file (task_queue.txt).`,
	}, h.queueHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sprint_inspect",
		Description: "Show a section (summary, command, stdout, stderr, artifact) of a stored sprint_run or sprint_queue result.",
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sprint_history",
		Description: "List stored sprint_run and sprint_queue results, most recent first, with their run IDs for sprint_inspect.",
	}, h.historyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sprint_workspace",
		Description: "Describe the resolved sprinter configuration: project root, script location and availability, default model, artifact path.",
	}, h.workspaceHandler)

	return s
}

// current returns the engine in use. Engines are replaced, never mutated.
func (h *handler) current() *workflow.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// updateWorkspaceFromRoots queries the client for MCP roots and rebuilds
// the engine for the first file:// root. This is called during session
// initialization, before any tool calls.
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

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.log.Warn().Err(err).Str("root", u.Path).Msg("ignoring workspace root")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.engine = &workflow.Engine{
		Config:      loaded.Config,
		Runner:      workflow.NewRunner(loaded.Config, loaded.ProjectRoot, h.log),
		ProjectRoot: loaded.ProjectRoot,
		Log:         h.log,
	}
	h.log.Info().Str("root", loaded.ProjectRoot).Msg("workspace updated from roots")
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
