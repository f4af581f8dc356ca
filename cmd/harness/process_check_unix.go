//go:build !windows

package harness

import (
	"errors"
	"os"
	"syscall"
)

// isProcessAlive checks whether a process with the given PID is running.
// Signal 0 performs the existence check without delivering anything:
// nil means alive, ESRCH means gone, EPERM means alive but owned by another
// user (still counted as alive).
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
