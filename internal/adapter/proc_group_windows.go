//go:build windows

package adapter

import "os/exec"

const (
	shellPath = "cmd"
	shellFlag = "/C"
)

// setProcessGroup is a no-op on Windows; termination falls back to killing
// the direct child only.
func setProcessGroup(_ *exec.Cmd) {}

func terminateProcessGroup(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	return cmd.Process.Kill()
}
