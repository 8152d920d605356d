package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// waitDelay bounds how long Spawn waits for output pipes to close once the
// process group has been killed.
const waitDelay = 2 * time.Second

// Command describes one child process.
type Command struct {
	Path   string
	Args   []string // arguments after Path
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Spawner starts a child process and waits for it to exit.
// A non-nil error means the process could not be run at all; otherwise
// the exit code is returned.
type Spawner interface {
	Spawn(ctx context.Context, c *Command) (int, error)
}

// ExecSpawner runs commands with os/exec. The child runs in its own
// process group; cancelling ctx kills the whole group, including any
// processes the script started.
type ExecSpawner struct{}

// Spawn implements Spawner.
func (ExecSpawner) Spawn(ctx context.Context, c *Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
