package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/runner"
)

type runParams struct {
	Line  string `json:"line" jsonschema:"the sprint line selected in the editor"`
	Model string `json:"model,omitempty" jsonschema:"model token passed to the sprint script (e.g. mistral:latest). Defaults to the configured model."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	rec, err := h.current().Run(ctx, runner.Request{Line: params.Line, Model: params.Model})

	switch {
	case errors.Is(err, runner.ErrEmptyInput):
		return errorResult("The sprint line is empty. Select a sprint line first.")
	case errors.Is(err, runner.ErrScriptNotFound):
		return errorResult(fmt.Sprintf("%v\n\nCheck scripts_dir and script in .sprinter (see sprint_workspace).", err))
	}

	if saveErr := h.store.Save(rec); saveErr != nil {
		h.log.Warn().Err(saveErr).Str("run_id", rec.ID).Msg("failed to store run")
	}

	text := formatRun(rec)
	if err != nil {
		return errorResult(text)
	}
	return textResult(text)
}

func formatRun(rec *report.Run) string {
	var b strings.Builder

	fmt.Fprint(&b, report.Summary(rec))
	if rec.Artifact != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Artifact:")
		fmt.Fprintln(&b, rec.Artifact)
	} else if rec.Status == report.StatusFail && rec.Stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stderr:")
		fmt.Fprintln(&b, strings.TrimRight(rec.Stderr, "\n"))
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with sprint_inspect(run_id=%q, section=\"stdout|stderr|artifact|command\").\n", rec.ID)

	return b.String()
}
