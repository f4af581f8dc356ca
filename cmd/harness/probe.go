package harness

import (
	"fmt"
	"strings"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// ProbeResult is the outcome of a CPU capability probe. Probing never fails
// the run: a probe that cannot read anything returns an empty feature set and
// records the problem in Warnings.
type ProbeResult struct {
	Features FeatureSet
	Raw      string   // raw platform flag text, for diagnostics only
	Warnings []string // non-fatal probe problems
}

// ProbeFeatures collects CPU instruction-set support for the current host.
// It merges the architecture-level probe (golang.org/x/sys/cpu) with the
// OS-level flag source (/proc/cpuinfo on Linux, sysctl on macOS), translating
// every platform-specific flag through an explicit mapping table. Flags with
// no mapping are dropped.
func ProbeFeatures() ProbeResult {
	result := ProbeResult{Features: make(FeatureSet)}

	archFeatures, archWarn := probeArch()
	for f := range archFeatures {
		result.Features[f] = struct{}{}
	}
	if archWarn != "" {
		result.Warnings = append(result.Warnings, archWarn)
	}

	raw, err := readPlatformFlags()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not read platform CPU flags: %v", err))
	} else if raw != "" {
		result.Raw = raw
		for _, f := range translateFlags(raw, platformFlagMap) {
			result.Features[f] = struct{}{}
		}
	}

	utils.LogDebug(fmt.Sprintf("Probed CPU features: %s", result.Features))
	return result
}

// splitFlagTokens splits raw platform flag text into lowercase tokens.
// Mapping tables are keyed lowercase so casing differences between sources
// (sysctl shouts, cpuinfo whispers) don't matter.
func splitFlagTokens(raw string) []string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// translateFlags maps whitespace-separated platform flag tokens to vocabulary
// features using the given mapping table. Unknown flags are dropped, not
// propagated.
func translateFlags(raw string, mapping map[string]Feature) []Feature {
	var out []Feature
	for _, token := range splitFlagTokens(raw) {
		if f, ok := mapping[token]; ok {
			out = append(out, f)
		}
	}
	return out
}
