package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/sprinter/internal/report"
)

type inspectParams struct {
	RunID   string `json:"run_id" jsonschema:"the run ID from a sprint_run or sprint_queue result"`
	Section string `json:"section,omitempty" jsonschema:"one of summary, command, stdout, stderr, artifact. Default: summary."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	run, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	text, err := report.Section(run, params.Section)
	if err != nil {
		return errorResult(err.Error())
	}
	if text == "" {
		return textResult(fmt.Sprintf("Section %s of run %s is empty.", params.Section, params.RunID))
	}
	return textResult(text)
}
