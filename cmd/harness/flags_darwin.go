package harness

import (
	"os/exec"
	"strings"
)

// platformFlagMap translates sysctl machdep.cpu feature spellings (lowercased)
// into the harness vocabulary. Intel Macs are the only x86-64 Apple hardware;
// the AVX-512/AMX entries are unreachable there but keep the table uniform.
var platformFlagMap = map[string]Feature{
	"sse4.2":  FeatureSSE42,
	"avx1.0":  FeatureAVX,
	"f16c":    FeatureF16C,
	"fma":     FeatureFMA,
	"avx2":    FeatureAVX2,
	"avx512f": FeatureAVX512F,
}

// readPlatformFlags queries sysctl for the CPU feature lists. On Apple
// Silicon the machdep.cpu.features key does not exist; that is a normal
// empty result, not an error.
func readPlatformFlags() (string, error) {
	var parts []string
	for _, key := range []string{"machdep.cpu.features", "machdep.cpu.leaf7_features"} {
		out, err := exec.Command("sysctl", "-n", key).Output()
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(string(out)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
