// Package report provides structured persistence and retrieval of sprint
// runs. Runs are stored as typed structs and can be queried by section.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Single is one sprint line run through the script.
	Single Kind = "run"
	// Queue is a sequence of sprint lines read from queue files.
	Queue Kind = "queue"
)

// Status values for runs and queue entries.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Lister is implemented by stores that can enumerate their runs.
type Lister interface {
	// List returns up to limit runs, most recent first. A limit <= 0
	// returns all runs.
	List(limit int) ([]*Run, error)
}

// Run holds the structured record of a sprint invocation.
type Run struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Status   string        `json:"status"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Single-run fields.
	Line      string `json:"line,omitempty"`
	Model     string `json:"model,omitempty"`
	Command   string `json:"command,omitempty"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
	Warning   string `json:"warning,omitempty"`
	Error     string `json:"error,omitempty"`

	// Queue fields.
	Sources []string     `json:"sources,omitempty"`
	Entries []QueueEntry `json:"entries,omitempty"`
}

// QueueEntry is the outcome of one line of a queue run.
type QueueEntry struct {
	Line     string `json:"line"`
	RunID    string `json:"run_id,omitempty"`
	Status   string `json:"status"`
	ExitCode int    `json:"exit_code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Expect returns an error if the run's Kind does not match want.
func (r *Run) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Sections lists the names accepted by Section.
var Sections = []string{"summary", "command", "stdout", "stderr", "artifact"}

// Section returns one named part of a run as text.
func Section(r *Run, name string) (string, error) {
	switch name {
	case "", "summary":
		return Summary(r), nil
	case "command":
		return r.Command, nil
	case "stdout":
		return r.Stdout, nil
	case "stderr":
		return r.Stderr, nil
	case "artifact":
		return r.Artifact, nil
	}
	return "", fmt.Errorf("unknown section %q (want one of %s)", name, strings.Join(Sections, ", "))
}

// Summary renders a short human-readable description of the run.
func Summary(r *Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", r.ID, r.Kind)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)

	switch r.Kind {
	case Queue:
		counts := make(map[string]int)
		for _, e := range r.Entries {
			counts[e.Status]++
		}
		var parts []string
		for status, n := range counts {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
		sort.Strings(parts)
		fmt.Fprintf(&b, "Lines: %d (%s)\n", len(r.Entries), strings.Join(parts, ", "))
		fmt.Fprintln(&b)
		for i, e := range r.Entries {
			fmt.Fprintf(&b, "  %2d. %-7s %s", i+1, e.Status, e.Line)
			if e.Detail != "" {
				fmt.Fprintf(&b, " (%s)", e.Detail)
			}
			if e.RunID != "" {
				fmt.Fprintf(&b, " [%s]", e.RunID)
			}
			fmt.Fprintln(&b)
		}
	default:
		fmt.Fprintf(&b, "Line: %s\n", r.Line)
		if r.Model != "" {
			fmt.Fprintf(&b, "Model: %s\n", r.Model)
		}
		fmt.Fprintf(&b, "Exit code: %d\n", r.ExitCode)
		if r.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", r.Error)
		}
		if r.Warning != "" {
			fmt.Fprintf(&b, "Warning: %s\n", r.Warning)
		}
		if r.Truncated {
			fmt.Fprintln(&b, "Output truncated.")
		}
	}
	return b.String()
}

// List renders one line per run: ID, kind, status, start time and the
// sprint line (or line count for queues).
func List(runs []*Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	for _, r := range runs {
		label := r.Line
		if r.Kind == Queue {
			label = fmt.Sprintf("%d lines", len(r.Entries))
		}
		fmt.Fprintf(&b, "%s  %-5s  %-7s  %s  %s\n",
			r.ID, r.Kind, r.Status, r.Started.Local().Format("2006-01-02 15:04:05"), label)
	}
	return b.String()
}
