// Command sprinter runs sprint lines through the project's sprint script.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/deixis/sprinter"
	"github.com/deixis/sprinter/internal/config"
	"github.com/deixis/sprinter/internal/logging"
	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/runner"
	"github.com/deixis/sprinter/internal/workflow"
)

// flags holds the global options shared by every command.
type flags struct {
	LogLevel   string
	LogFile    string
	Workspace  string
	HistoryDir string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		f         = &flags{}
		logCloser func()
	)

	app := &cli.Command{
		Name:      "sprinter",
		Usage:     "Run sprint lines through the project's sprint script",
		UsageText: "sprinter [global options] command [command options]",
		Description: `sprinter passes a sprint line and a model token to the sprint script
(.cursor/rules/scripts/run_sprint.sh by default), streams its output to the log,
and reads back last_sprint_output.txt.

Run 'sprinter mcp' to expose the same operations to an editor over MCP.`,
		Version: sprinter.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("SPRINTER_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars("SPRINTER_LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "workspace",
				Aliases:     []string{"w"},
				Usage:       "workspace directory (defaults to the current directory)",
				Sources:     cli.EnvVars("SPRINTER_WORKSPACE"),
				Destination: &f.Workspace,
			},
			&cli.StringFlag{
				Name:        "history-dir",
				Usage:       "directory for stored runs (defaults to history.dir or the data dir)",
				Sources:     cli.EnvVars("SPRINTER_HISTORY_DIR"),
				Destination: &f.HistoryDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logging.New(f.LogLevel, f.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Commands: []*cli.Command{
			newRunCmd(f),
			newQueueCmd(f),
			newInspectCmd(f),
			newHistoryCmd(f),
			newMCPCmd(f),
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					_, err := fmt.Fprintln(c.Root().Writer, sprinter.Version)
					return err
				},
			},
		},
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sprinter: %v\n", err)
		exitCode = 1
	}
	stop()
	os.Exit(exitCode)
}

// env is the resolved project for one command invocation.
type env struct {
	runner *runner.Runner
	engine *workflow.Engine
	store  *report.LRUStore
	root   string
	close  func()
}

// newEnv loads the configuration for the workspace and wires the engine
// and run store.
func newEnv(f *flags) (*env, error) {
	workspace := f.Workspace
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining workspace: %w", err)
		}
		workspace = wd
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	r := workflow.NewRunner(cfg, loaded.ProjectRoot, logging.Component("runner"))
	engine := &workflow.Engine{
		Config:      cfg,
		Runner:      r,
		ProjectRoot: loaded.ProjectRoot,
		Log:         logging.Component("workflow"),
	}

	historyDir := f.HistoryDir
	if historyDir == "" {
		historyDir = cfg.HistoryDir(loaded.ProjectRoot)
	}
	if historyDir == "" {
		historyDir = defaultHistoryDir()
	}
	e := &env{runner: r, engine: engine, root: loaded.ProjectRoot, close: func() {}}
	switch cfg.HistoryBackend() {
	case config.HistorySQLite:
		db, err := report.OpenSQLiteStore(historyDir)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		e.store = report.NewLRUStore(cfg.CacheSize(), db)
		e.close = func() { _ = db.Close() }
	default:
		e.store = report.NewLRUStore(cfg.CacheSize(), report.NewDiskStore(historyDir))
	}
	return e, nil
}

// saveRuns stores records, logging rather than failing on error.
func (e *env) saveRuns(runs ...*report.Run) {
	for _, r := range runs {
		if err := e.store.Save(r); err != nil {
			log.Warn().Err(err).Str("run_id", r.ID).Msg("failed to store run")
		}
	}
}

// defaultHistoryDir returns $XDG_DATA_HOME/sprinter/runs.
func defaultHistoryDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sprinter", "runs")
}
