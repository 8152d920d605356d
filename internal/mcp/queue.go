package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/workflow"
)

type queueParams struct {
	Files         []string `json:"files,omitempty" jsonschema:"queue files or glob patterns (e.g. sprints/**/*.txt), relative to the project root. Defaults to the configured queue file."`
	Model         string   `json:"model,omitempty" jsonschema:"model token applied to every line. Defaults to the configured model."`
	StopOnFailure bool     `json:"stop_on_failure,omitempty" jsonschema:"skip the remaining lines after the first failing one"`
}

func (h *handler) queueHandler(ctx context.Context, req *mcp.CallToolRequest, params queueParams) (*mcp.CallToolResult, any, error) {
	out, err := h.current().Queue(ctx, workflow.QueueOptions{
		Patterns:      params.Files,
		Model:         params.Model,
		StopOnFailure: params.StopOnFailure,
	})
	if out != nil {
		for _, rec := range append(out.Lines, out.Run) {
			if saveErr := h.store.Save(rec); saveErr != nil {
				h.log.Warn().Err(saveErr).Str("run_id", rec.ID).Msg("failed to store run")
			}
		}
	}
	if err != nil {
		text := fmt.Sprintf("queue failed: %v", err)
		if out != nil {
			text += "\n\n" + report.Summary(out.Run)
		}
		return errorResult(text)
	}

	rec := out.Run
	text := report.Summary(rec) + "\nInspect single lines with sprint_inspect(run_id=<id in brackets>).\n"
	if rec.Status != report.StatusPass {
		return errorResult(text)
	}
	return textResult(text)
}
