//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op; exec.CommandContext kills the child only.
func setProcessGroup(cmd *exec.Cmd) {}
