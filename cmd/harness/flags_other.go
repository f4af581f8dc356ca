//go:build !linux && !darwin

package harness

// platformFlagMap is empty on platforms without an OS-level flag source;
// the probe relies on the architecture-level CPUID bits alone.
var platformFlagMap = map[string]Feature{}

func readPlatformFlags() (string, error) {
	return "", nil
}
