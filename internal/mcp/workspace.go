package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/sprinter/internal/workflow"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	e := h.current()
	return textResult(describeWorkspace(e))
}

func describeWorkspace(e *workflow.Engine) string {
	var b strings.Builder
	cfg := e.Config
	r := workflow.NewRunner(cfg, e.ProjectRoot, e.Log)

	fmt.Fprintf(&b, "Project root: %s\n", e.ProjectRoot)
	fmt.Fprintf(&b, "Scripts dir: %s\n", r.ScriptsDir)

	script := r.ScriptPath()
	switch fi, err := os.Stat(script); {
	case err != nil:
		fmt.Fprintf(&b, "Script: %s (missing)\n", script)
	case fi.Mode()&0o111 == 0:
		fmt.Fprintf(&b, "Script: %s (not executable)\n", script)
	default:
		fmt.Fprintf(&b, "Script: %s\n", script)
	}

	fmt.Fprintf(&b, "Default model: %s\n", r.DefaultModel)
	fmt.Fprintf(&b, "Artifact: %s\n", r.ArtifactPath())
	fmt.Fprintf(&b, "Output mode: %s\n", r.Mode)
	if r.Timeout > 0 {
		fmt.Fprintf(&b, "Timeout: %s\n", r.Timeout)
	} else {
		fmt.Fprintln(&b, "Timeout: none")
	}
	fmt.Fprintf(&b, "Queue file: %s\n", cfg.QueueFile(e.ProjectRoot))

	return b.String()
}
