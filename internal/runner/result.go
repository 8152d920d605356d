package runner

import "time"

// Request is a single sprint invocation.
type Request struct {
	Line  string // sprint line; must be non-blank
	Model string // model token; empty selects the runner default
}

// Result holds the outcome of a sprint script execution.
type Result struct {
	RunID     string        // unique identifier for this run
	Line      string        // trimmed sprint line passed to the script
	Model     string        // model token passed to the script
	Argv      []string      // exact argv handed to the process
	Dir       string        // working directory of the child
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	Started   time.Time     // spawn time
	Duration  time.Duration // wall time until exit

	// Artifact is the verbatim content of the output artifact when
	// ArtifactFound is set.
	Artifact      string
	ArtifactFound bool

	// Warning is set when the run succeeded but something the caller may
	// care about went wrong, e.g. ErrArtifactMissing.
	Warning error
}
