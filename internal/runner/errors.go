package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the sprint line is blank.
	ErrEmptyInput = errors.New("empty selection: select a sprint line first")
	// ErrScriptNotFound is returned when the sprint script does not exist.
	ErrScriptNotFound = errors.New("sprint script not found")
	// ErrSpawn matches any *SpawnError.
	ErrSpawn = errors.New("spawning sprint script")
	// ErrNonZeroExit matches any *ExitError.
	ErrNonZeroExit = errors.New("sprint script exited non-zero")
	// ErrArtifactMissing is reported through Result.Warning, never returned.
	ErrArtifactMissing = errors.New("output artifact not found")
)

// SpawnError wraps an operating-system failure to start the script.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// ExitError reports a script that ran but exited with a non-zero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("sprint script exited with code %d", e.Code)
}

func (e *ExitError) Is(target error) bool { return target == ErrNonZeroExit }
