package harness

import (
	"bufio"
	"os"
	"strings"
)

// platformFlagMap translates /proc/cpuinfo flag spellings into the harness
// vocabulary. Anything absent from this table is dropped.
var platformFlagMap = map[string]Feature{
	"sse4_2":      FeatureSSE42,
	"avx":         FeatureAVX,
	"f16c":        FeatureF16C,
	"fma":         FeatureFMA,
	"avx2":        FeatureAVX2,
	"avx_vnni":    FeatureAVXVNNI,
	"avx512f":     FeatureAVX512F,
	"avx512_vbmi": FeatureAVX512VBMI,
	"avx512vbmi":  FeatureAVX512VBMI,
	"avx512_vnni": FeatureAVX512VNNI,
	"avx512vnni":  FeatureAVX512VNNI,
	"avx512_bf16": FeatureAVX512BF16,
	"amx_tile":    FeatureAMXTile,
	"amx_int8":    FeatureAMXInt8,
}

// readPlatformFlags returns the "flags" line of the first processor entry in
// /proc/cpuinfo. All cores report the same ISA set on the machines this
// harness targets, so one entry is enough.
func readPlatformFlags() (string, error) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Flag lines can exceed bufio's default token size on many-extension CPUs.
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "flags") || strings.HasPrefix(line, "Features") {
			if idx := strings.Index(line, ":"); idx >= 0 {
				return strings.TrimSpace(line[idx+1:]), nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", nil
}
