//go:build windows

package harness

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isProcessAlive checks whether a process with the given PID is running.
// On Windows os.FindProcess succeeds even for dead PIDs, so OpenProcess with
// the minimum access right is the real existence check.
func isProcessAlive(pid int) bool {
	const processQueryLimitedInformation = 0x1000

	handle, err := windows.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err != nil {
		// Access denied means the process exists but is protected; treat it
		// as alive for consistency with the Unix EPERM handling.
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return true
		}
		return false
	}

	windows.CloseHandle(handle)
	return true
}
