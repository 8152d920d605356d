package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/runner"
	"github.com/deixis/sprinter/internal/workflow"
)

// errFailed signals a completed command whose outcome was a failure. The
// details have already been printed.
var errFailed = errors.New("sprint failed")

func newRunCmd(f *flags) *cli.Command {
	var (
		model    string
		buffered bool
		echo     bool
		asJSON   bool
	)

	return &cli.Command{
		Name:      "run",
		Usage:     "Run one sprint line through the sprint script",
		ArgsUsage: "<line...>",
		Description: `The arguments are joined with spaces into a single sprint line. Use "-" to
read the line from stdin.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "model token passed to the script (defaults to the configured model)",
				Destination: &model,
			},
			&cli.BoolFlag{
				Name:        "buffered",
				Usage:       "log script output after it exits instead of streaming it",
				Destination: &buffered,
			},
			&cli.BoolFlag{
				Name:        "echo",
				Usage:       "mirror raw script output to stdout while it runs",
				Destination: &echo,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the run record as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			line, err := readLine(c.Args().Slice(), os.Stdin)
			if err != nil {
				return err
			}

			e, err := newEnv(f)
			if err != nil {
				return err
			}
			defer e.close()
			if buffered {
				e.runner.Mode = runner.Buffered
			}
			if echo && !asJSON {
				e.runner.Echo = c.Root().Writer
			}

			rec, runErr := e.engine.Run(ctx, runner.Request{Line: line, Model: model})
			if errors.Is(runErr, runner.ErrEmptyInput) || errors.Is(runErr, runner.ErrScriptNotFound) {
				return runErr
			}
			e.saveRuns(rec)

			if asJSON {
				if err := writeJSON(c.Root().Writer, rec); err != nil {
					return err
				}
			} else {
				fmt.Fprint(c.Root().Writer, formatRunCLI(rec))
			}
			if runErr != nil {
				return errFailed
			}
			return nil
		},
	}
}

// readLine builds the sprint line from args, or from r when args is "-".
func readLine(args []string, r io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

func formatRunCLI(rec *report.Run) string {
	var b strings.Builder
	b.WriteString(report.Summary(rec))
	switch {
	case rec.Artifact != "":
		b.WriteString("\n")
		b.WriteString(rec.Artifact)
		if !strings.HasSuffix(rec.Artifact, "\n") {
			b.WriteString("\n")
		}
	case rec.Status != report.StatusPass && rec.Stderr != "":
		b.WriteString("\nStderr:\n")
		b.WriteString(rec.Stderr)
		if !strings.HasSuffix(rec.Stderr, "\n") {
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\nsprinter inspect %s [section]\n", rec.ID)
	return b.String()
}

func newQueueCmd(f *flags) *cli.Command {
	var (
		model         string
		stopOnFailure bool
		echo          bool
		asJSON        bool
	)

	return &cli.Command{
		Name:      "queue",
		Usage:     "Run every line of one or more queue files in order",
		ArgsUsage: "[file or glob...]",
		Description: `Blank lines and lines starting with # are skipped. Without arguments the
configured queue file (task_queue.txt) is used. Globs support ** via doublestar.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "model token for every line",
				Destination: &model,
			},
			&cli.BoolFlag{
				Name:        "stop-on-failure",
				Usage:       "skip the remaining lines after the first failure",
				Destination: &stopOnFailure,
			},
			&cli.BoolFlag{
				Name:        "echo",
				Usage:       "mirror raw script output to stdout while it runs",
				Destination: &echo,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the queue record as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := newEnv(f)
			if err != nil {
				return err
			}
			defer e.close()
			if echo && !asJSON {
				e.runner.Echo = c.Root().Writer
			}

			res, err := e.engine.Queue(ctx, workflow.QueueOptions{
				Patterns:      c.Args().Slice(),
				Model:         model,
				StopOnFailure: stopOnFailure,
			})
			if res != nil {
				e.saveRuns(res.Lines...)
				e.saveRuns(res.Run)
			}
			if err != nil {
				return fmt.Errorf("queue: %w", err)
			}

			if asJSON {
				if err := writeJSON(c.Root().Writer, res.Run); err != nil {
					return err
				}
			} else {
				fmt.Fprint(c.Root().Writer, report.Summary(res.Run))
			}
			if res.Run.Status != report.StatusPass {
				return errFailed
			}
			return nil
		},
	}
}

func newInspectCmd(f *flags) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show a section of a stored run",
		ArgsUsage: "<run-id> [summary|command|stdout|stderr|artifact]",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().Get(0)
			if id == "" {
				return fmt.Errorf("inspect: run id required")
			}

			e, err := newEnv(f)
			if err != nil {
				return err
			}
			defer e.close()
			rec, err := e.store.Load(id)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			text, err := report.Section(rec, c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			_, err = fmt.Fprint(c.Root().Writer, text)
			return err
		},
	}
}

func newHistoryCmd(f *flags) *cli.Command {
	var (
		limit  int
		asJSON bool
	)

	return &cli.Command{
		Name:  "history",
		Usage: "List stored runs, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of runs to show (0 for all)",
				Value:       20,
				Destination: &limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the runs as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := newEnv(f)
			if err != nil {
				return err
			}
			defer e.close()

			runs, err := e.store.List(limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if asJSON {
				return writeJSON(c.Root().Writer, runs)
			}
			_, err = fmt.Fprint(c.Root().Writer, report.List(runs))
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
