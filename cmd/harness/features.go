// Package harness contains the core of the llama-server compatibility
// harness: CPU feature probing, binary variant selection, and the supervised
// server lifecycle the HTTP checks run against.
package harness

import (
	"sort"
	"strings"
)

// Feature is a CPU capability token from the harness's controlled vocabulary.
// Platform-specific flag names (e.g. /proc/cpuinfo spellings) are translated
// into these tokens by the probe; they never leak out raw.
type Feature string

const (
	FeatureSSE42      Feature = "SSE42"
	FeatureAVX        Feature = "AVX"
	FeatureF16C       Feature = "F16C"
	FeatureFMA        Feature = "FMA"
	FeatureAVX2       Feature = "AVX2"
	FeatureAVXVNNI    Feature = "AVX_VNNI"
	FeatureAVX512F    Feature = "AVX512F"
	FeatureAVX512VBMI Feature = "AVX512_VBMI"
	FeatureAVX512VNNI Feature = "AVX512_VNNI"
	FeatureAVX512BF16 Feature = "AVX512_BF16"
	FeatureAMXTile    Feature = "AMX_TILE"
	FeatureAMXInt8    Feature = "AMX_INT8"
)

// AllFeatures is the controlled vocabulary in catalog order.
var AllFeatures = []Feature{
	FeatureSSE42, FeatureAVX, FeatureF16C, FeatureFMA, FeatureAVX2,
	FeatureAVXVNNI, FeatureAVX512F, FeatureAVX512VBMI, FeatureAVX512VNNI,
	FeatureAVX512BF16, FeatureAMXTile, FeatureAMXInt8,
}

// ParseFeature maps a token from user input onto the controlled vocabulary.
// Matching is case-insensitive.
func ParseFeature(s string) (Feature, bool) {
	token := strings.ToUpper(strings.TrimSpace(s))
	for _, f := range AllFeatures {
		if string(f) == token {
			return f, true
		}
	}
	return "", false
}

// FeatureSet is an unordered set of CPU capability tokens. A probed set is
// treated as immutable for the rest of the run.
type FeatureSet map[Feature]struct{}

// NewFeatureSet builds a FeatureSet from the given tokens.
func NewFeatureSet(features ...Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f] = struct{}{}
	}
	return fs
}

// Has reports whether the set contains f.
func (fs FeatureSet) Has(f Feature) bool {
	_, ok := fs[f]
	return ok
}

// ContainsAll reports whether every feature in required is present in fs.
// Both sides are sets; iteration order never affects the result.
func (fs FeatureSet) ContainsAll(required FeatureSet) bool {
	for f := range required {
		if !fs.Has(f) {
			return false
		}
	}
	return true
}

// Diff returns the features in fs that are not in other.
func (fs FeatureSet) Diff(other FeatureSet) FeatureSet {
	out := make(FeatureSet)
	for f := range fs {
		if !other.Has(f) {
			out[f] = struct{}{}
		}
	}
	return out
}

// Sorted returns the features in deterministic (lexical) order for display.
func (fs FeatureSet) Sorted() []Feature {
	out := make([]Feature, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (fs FeatureSet) String() string {
	if len(fs) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(fs))
	for _, f := range fs.Sorted() {
		parts = append(parts, string(f))
	}
	return strings.Join(parts, ", ")
}
