// Package runner invokes the external sprint script for a single sprint
// line, forwards its output to a log sink, and reads back the output
// artifact the script leaves behind.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode selects how script output reaches the log sink.
type Mode string

const (
	// Stream logs every stdout/stderr chunk as soon as it arrives.
	Stream Mode = "stream"
	// Buffered logs the complete output once the script has exited.
	Buffered Mode = "buffered"
)

// Runner executes the sprint script. Its fields are read-only during Run,
// so one Runner may serve concurrent calls.
type Runner struct {
	ScriptsDir   string        // working directory of the script
	Script       string        // script file name inside ScriptsDir
	DefaultModel string        // model token used when Request.Model is empty
	Artifact     string        // output artifact file name inside ScriptsDir
	Mode         Mode          // defaults to Stream
	Timeout      time.Duration // zero means wait indefinitely
	MaxOutput    int           // bytes captured per stream; zero means unlimited

	Log     zerolog.Logger // diagnostic sink
	Echo    io.Writer      // optional raw mirror of script output
	Spawner Spawner        // defaults to ExecSpawner
}

// ScriptPath returns the absolute location of the sprint script.
func (r *Runner) ScriptPath() string {
	return filepath.Join(r.ScriptsDir, r.Script)
}

// ArtifactPath returns the location of the output artifact.
func (r *Runner) ArtifactPath() string {
	return filepath.Join(r.ScriptsDir, r.Artifact)
}

// CommandLine renders the shell form of an invocation for display:
// the line is wrapped in double quotes with every embedded double quote
// escaped by a backslash. It is never executed.
func CommandLine(script, line, model string) string {
	return fmt.Sprintf(`%s "%s" %s`, script, strings.ReplaceAll(line, `"`, `\"`), model)
}

// Run executes the sprint script once for req.
//
// The returned error matches ErrEmptyInput, ErrScriptNotFound, ErrSpawn or
// ErrNonZeroExit. On ErrNonZeroExit the Result is returned as well. A
// missing artifact does not fail the run; it is reported in Result.Warning.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	line := strings.TrimSpace(req.Line)
	if line == "" {
		return nil, ErrEmptyInput
	}

	script := r.ScriptPath()
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, script)
	}

	model := req.Model
	if model == "" {
		model = r.DefaultModel
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res := &Result{
		RunID: uuid.New().String(),
		Line:  line,
		Model: model,
		Argv:  []string{script, line, model},
		Dir:   r.ScriptsDir,
	}

	log := r.Log.With().Str("run_id", res.RunID).Logger()
	log.Info().
		Str("model", model).
		Str("cmd", CommandLine(script, line, model)).
		Msg("running sprint")

	var stdout, stderr bytes.Buffer
	outCap := &limitWriter{buf: &stdout, limit: r.limit()}
	errCap := &limitWriter{buf: &stderr, limit: r.limit()}

	cmd := &Command{
		Path:   script,
		Args:   res.Argv[1:],
		Dir:    r.ScriptsDir,
		Env:    os.Environ(),
		Stdout: outCap,
		Stderr: errCap,
	}

	s := &sink{log: log, echo: r.Echo}
	if r.Mode != Buffered {
		cmd.Stdout = io.MultiWriter(outCap, &streamWriter{sink: s, stream: "stdout", level: zerolog.InfoLevel})
		cmd.Stderr = io.MultiWriter(errCap, &streamWriter{sink: s, stream: "stderr", level: zerolog.WarnLevel})
	}

	res.Started = time.Now()
	code, err := r.spawner().Spawn(ctx, cmd)
	res.Duration = time.Since(res.Started)
	if err != nil {
		return nil, &SpawnError{Path: script, Err: err}
	}

	res.ExitCode = code
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Truncated = outCap.truncated || errCap.truncated

	if r.Mode == Buffered {
		r.logBuffered(s, res)
	}

	if code != 0 {
		log.Error().Int("exit_code", code).Dur("duration", res.Duration).Msg("sprint failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%w (%w)", &ExitError{Code: code}, ctxErr)
		}
		return res, &ExitError{Code: code}
	}

	log.Info().Dur("duration", res.Duration).Msg("sprint finished")
	r.readArtifact(log, res)
	return res, nil
}

// readArtifact loads the output artifact into res. Failures are downgraded
// to a warning.
func (r *Runner) readArtifact(log zerolog.Logger, res *Result) {
	if r.Artifact == "" {
		return
	}
	path := r.ArtifactPath()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		res.Artifact = string(data)
		res.ArtifactFound = true
		log.Info().Str("path", path).Int("bytes", len(data)).Msg("artifact read")
		log.Debug().Str("path", path).Msg(res.Artifact)
	case os.IsNotExist(err):
		res.Warning = fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		log.Warn().Str("path", path).Msg("artifact not found")
	default:
		res.Warning = fmt.Errorf("reading artifact: %w", err)
		log.Warn().Err(err).Str("path", path).Msg("artifact unreadable")
	}
}

func (r *Runner) logBuffered(s *sink, res *Result) {
	if len(res.Stdout) > 0 {
		s.chunk("stdout", zerolog.InfoLevel, res.Stdout)
	}
	if len(res.Stderr) > 0 {
		s.chunk("stderr", zerolog.WarnLevel, res.Stderr)
	}
}

func (r *Runner) limit() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return int(^uint(0) >> 1)
}

func (r *Runner) spawner() Spawner {
	if r.Spawner != nil {
		return r.Spawner
	}
	return ExecSpawner{}
}
