// Package workflow provides the execution engine shared by the MCP server
// and the CLI: single sprint runs and sequential queue runs, both turned
// into report.Run records.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deixis/sprinter/internal/config"
	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/runner"
)

// SprintRunner executes one sprint line.
// Implemented by runner.Runner.
type SprintRunner interface {
	Run(ctx context.Context, req runner.Request) (*runner.Result, error)
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config      *config.Config
	Runner      SprintRunner
	ProjectRoot string // queue file patterns resolve against this
	Log         zerolog.Logger
}

// NewRunner builds a runner.Runner from cfg for the project at root.
func NewRunner(cfg *config.Config, root string, log zerolog.Logger) *runner.Runner {
	return &runner.Runner{
		ScriptsDir:   cfg.ScriptsDir(root),
		Script:       cfg.Script(),
		DefaultModel: cfg.Model(),
		Artifact:     cfg.Artifact(),
		Mode:         runner.Mode(cfg.Output()),
		Timeout:      cfg.Timeout(),
		MaxOutput:    cfg.MaxOutputBytes(),
		Log:          log,
	}
}

// Run executes a single sprint line. The returned record is never nil;
// the error is the runner's error, unchanged, so callers can match it
// with errors.Is.
func (e *Engine) Run(ctx context.Context, req runner.Request) (*report.Run, error) {
	started := time.Now()
	res, err := e.Runner.Run(ctx, req)
	return e.toRecord(req, res, err, started), err
}

// defaultModel is the model a request without one runs with.
func (e *Engine) defaultModel() string {
	if e.Config == nil {
		return config.DefaultModel
	}
	return e.Config.Model()
}

// toRecord converts a runner outcome into a stored run.
func (e *Engine) toRecord(req runner.Request, res *runner.Result, err error, started time.Time) *report.Run {
	model := req.Model
	if model == "" {
		model = e.defaultModel()
	}
	rec := &report.Run{
		Kind:    report.Single,
		Status:  status(err),
		Started: started,
		Line:    req.Line,
		Model:   model,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if res == nil {
		rec.ID = uuid.New().String()
		rec.Duration = time.Since(started)
		return rec
	}

	rec.ID = res.RunID
	if !res.Started.IsZero() {
		rec.Started = res.Started
		rec.Duration = res.Duration
	} else {
		rec.Duration = time.Since(started)
	}
	rec.Line = res.Line
	rec.Model = res.Model
	if len(res.Argv) > 0 {
		rec.Command = runner.CommandLine(res.Argv[0], res.Line, res.Model)
	}
	rec.ExitCode = res.ExitCode
	rec.Stdout = string(res.Stdout)
	rec.Stderr = string(res.Stderr)
	rec.Truncated = res.Truncated
	rec.Artifact = res.Artifact
	if res.Warning != nil {
		rec.Warning = res.Warning.Error()
	}
	return rec
}

func status(err error) string {
	switch {
	case err == nil:
		return report.StatusPass
	case errors.Is(err, runner.ErrNonZeroExit):
		return report.StatusFail
	default:
		return report.StatusError
	}
}
