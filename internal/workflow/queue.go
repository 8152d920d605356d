package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/deixis/sprinter/internal/report"
	"github.com/deixis/sprinter/internal/runner"
)

var (
	// ErrEmptyQueue is returned when the queue files hold no sprint lines.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrNoQueueFiles is returned when no file matches the queue patterns.
	ErrNoQueueFiles = errors.New("no queue files matched")
)

// QueueResult holds the full outcome of a queue run.
type QueueResult struct {
	Run   *report.Run   // queue record with one entry per line
	Lines []*report.Run // records of the lines that were executed
}

// QueueOptions controls a queue run.
type QueueOptions struct {
	Patterns      []string // file paths or doublestar globs; defaults to the configured queue file
	Model         string   // model override applied to every line
	StopOnFailure bool     // skip remaining lines after the first failure; ORed with the config
}

// Queue runs every line of the queue files through the runner in order.
// A failing line is recorded and, unless StopOnFailure is set, the queue
// moves on to the next one. A missing script aborts the whole queue; the
// partial result is returned alongside the error so lines that already ran
// can still be stored.
func (e *Engine) Queue(ctx context.Context, opts QueueOptions) (*QueueResult, error) {
	files, err := e.ResolveQueueFiles(opts.Patterns)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, f := range files {
		l, err := ReadQueue(f)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l...)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyQueue, strings.Join(files, ", "))
	}

	rec := &report.Run{
		ID:      uuid.New().String(),
		Kind:    report.Queue,
		Status:  report.StatusPass,
		Started: time.Now(),
		Sources: files,
		Entries: make([]report.QueueEntry, len(lines)),
	}
	for i, line := range lines {
		rec.Entries[i] = report.QueueEntry{Line: line, Status: report.StatusSkipped}
	}

	out := &QueueResult{Run: rec}
	log := e.Log.With().Str("queue_id", rec.ID).Logger()
	log.Info().Int("lines", len(lines)).Strs("files", files).Msg("queue started")

	for i, line := range lines {
		if ctx.Err() != nil {
			rec.Status = report.StatusError
			break
		}

		log.Info().Int("index", i+1).Int("total", len(lines)).Str("line", line).Msg("queue item")
		req := runner.Request{Line: line, Model: opts.Model}
		started := time.Now()
		res, err := e.Runner.Run(ctx, req)
		if errors.Is(err, runner.ErrScriptNotFound) {
			rec.Entries[i].Status = report.StatusError
			rec.Entries[i].Detail = err.Error()
			rec.Status = report.StatusError
			rec.Duration = time.Since(rec.Started)
			log.Error().Err(err).Int("index", i+1).Msg("queue aborted")
			return out, err
		}

		lineRec := e.toRecord(req, res, err, started)
		out.Lines = append(out.Lines, lineRec)

		entry := &rec.Entries[i]
		entry.Status = lineRec.Status
		entry.RunID = lineRec.ID
		entry.ExitCode = lineRec.ExitCode
		if err != nil {
			entry.Detail = err.Error()
			rec.Status = report.StatusFail
			log.Warn().Err(err).Int("index", i+1).Msg("queue item failed")
			if opts.StopOnFailure || e.Config.Queue.StopOnFailure {
				break
			}
		}
	}

	rec.Duration = time.Since(rec.Started)
	log.Info().Str("status", rec.Status).Dur("duration", rec.Duration).Msg("queue finished")
	return out, nil
}

// ResolveQueueFiles expands patterns into existing files. Relative patterns
// resolve against the project root; an empty list selects the configured
// queue file. A literal path that does not exist is returned as is so the
// read reports it.
func (e *Engine) ResolveQueueFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{e.Config.QueueFile(e.ProjectRoot)}, nil
	}

	var files []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		if !filepath.IsAbs(p) {
			p = filepath.Join(e.ProjectRoot, p)
		}
		if !strings.ContainsAny(p, "*?[{") {
			if !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("queue pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQueueFiles, strings.Join(patterns, ", "))
	}
	return files, nil
}

// ReadQueue returns the sprint lines of a queue file: trimmed, with blank
// lines and lines starting with # dropped.
func ReadQueue(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queue %s: %w", path, err)
	}
	return lines, nil
}
