package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/sprinter/internal/report"
)

type historyParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list, most recent first. Default: 20."`
}

func (h *handler) historyHandler(ctx context.Context, req *mcp.CallToolRequest, params historyParams) (*mcp.CallToolResult, any, error) {
	l, ok := h.store.(report.Lister)
	if !ok {
		return errorResult("The run store cannot list runs.")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := l.List(limit)
	if err != nil {
		return errorResult("Failed to list runs: " + err.Error())
	}
	return textResult(report.List(runs))
}
