package harness

import (
	"fmt"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// VariantSpec describes one prebuilt llama-server build and the CPU features
// it was compiled to require. The Name is the artifact naming contract shared
// with the release pipeline (llama-server-<name-suffix> assets).
type VariantSpec struct {
	Name        string     `yaml:"name" toml:"name" json:"name"`
	Description string     `yaml:"description" toml:"description" json:"description"`
	Required    FeatureSet `yaml:"-" toml:"-" json:"-"`
}

// DefaultVariantCatalog is the built-in catalog, ordered most capable and
// specific first. Selection walks this order and takes the first entry whose
// requirements the host satisfies, so the generic zero-requirement fallback
// must stay last. A suite config may replace the catalog entirely, including
// omitting the fallback to force hard failure on unrecognized CPUs.
var DefaultVariantCatalog = []VariantSpec{
	{
		Name:        "llama-sapphirerapids",
		Description: "Intel Sapphire Rapids (AMX + AVX-512)",
		Required:    NewFeatureSet(FeatureAVX512F, FeatureAVX512VNNI, FeatureAVX512BF16, FeatureAMXTile, FeatureAMXInt8),
	},
	{
		Name:        "llama-zen4",
		Description: "AMD Zen 4 (AVX-512 with BF16)",
		Required:    NewFeatureSet(FeatureAVX512F, FeatureAVX512VBMI, FeatureAVX512VNNI, FeatureAVX512BF16),
	},
	{
		Name:        "llama-icelake",
		Description: "Intel Ice Lake (AVX-512 with VNNI)",
		Required:    NewFeatureSet(FeatureAVX512F, FeatureAVX512VBMI, FeatureAVX512VNNI),
	},
	{
		Name:        "llama-skylakex",
		Description: "Intel Skylake-X (AVX-512 foundation)",
		Required:    NewFeatureSet(FeatureAVX512F),
	},
	{
		Name:        "llama-alderlake",
		Description: "Intel Alder Lake (AVX2 with AVX-VNNI)",
		Required:    NewFeatureSet(FeatureAVX2, FeatureFMA, FeatureF16C, FeatureAVXVNNI),
	},
	{
		Name:        "llama-haswell",
		Description: "Intel Haswell (AVX2/FMA/F16C)",
		Required:    NewFeatureSet(FeatureAVX, FeatureAVX2, FeatureFMA, FeatureF16C),
	},
	{
		Name:        "llama-sandybridge",
		Description: "Intel Sandy Bridge (AVX)",
		Required:    NewFeatureSet(FeatureAVX),
	},
	{
		Name:        "llama-sse42",
		Description: "SSE 4.2 baseline",
		Required:    NewFeatureSet(FeatureSSE42),
	},
	{
		Name:        "llama-generic",
		Description: "Generic x86-64 (no ISA extensions)",
		Required:    NewFeatureSet(),
	},
}

// VariantMatch is the result of selecting a variant for a host feature set.
// Additional (supported minus required) is informational only; nothing
// downstream depends on it.
type VariantMatch struct {
	Variant     string
	Description string
	Supported   []Feature
	Required    []Feature
	Additional  []Feature
}

// SelectVariant returns the first catalog entry whose required features are a
// subset of the probed set, or nil when nothing matches. First match wins:
// catalog order, not requirement-set size, decides ties. An empty feature set
// is a normal input; it matches only a zero-requirement entry.
func SelectVariant(catalog []VariantSpec, features FeatureSet) *VariantMatch {
	for _, spec := range catalog {
		if features.ContainsAll(spec.Required) {
			return &VariantMatch{
				Variant:     spec.Name,
				Description: spec.Description,
				Supported:   features.Sorted(),
				Required:    spec.Required.Sorted(),
				Additional:  features.Diff(spec.Required).Sorted(),
			}
		}
	}

	utils.LogDebug(fmt.Sprintf("No variant in catalog of %d entries matches features %s", len(catalog), features))
	return nil
}
