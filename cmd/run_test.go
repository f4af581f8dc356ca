package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodhisearch/llamacheck/cmd/config"
	"github.com/bodhisearch/llamacheck/cmd/harness"
)

func TestCatalogFromConfigDefaults(t *testing.T) {
	catalog, err := catalogFromConfig(&config.SuiteConfig{})
	if err != nil {
		t.Fatalf("catalogFromConfig: %v", err)
	}
	if len(catalog) != len(harness.DefaultVariantCatalog) {
		t.Errorf("empty config should use the built-in catalog")
	}
}

func TestCatalogFromConfigConverts(t *testing.T) {
	cfg := &config.SuiteConfig{
		Variants: []config.VariantConfig{
			{Name: "custom-avx2", Required: []string{"avx2", "FMA"}},
			{Name: "custom-fallback", Required: nil},
		},
	}
	catalog, err := catalogFromConfig(cfg)
	if err != nil {
		t.Fatalf("catalogFromConfig: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog size = %d, want 2", len(catalog))
	}
	if !catalog[0].Required.Has(harness.FeatureAVX2) || !catalog[0].Required.Has(harness.FeatureFMA) {
		t.Errorf("required set = %v", catalog[0].Required)
	}
	if len(catalog[1].Required) != 0 {
		t.Errorf("fallback should have no requirements, got %v", catalog[1].Required)
	}

	// Custom catalogs drive selection exactly like the built-in one.
	match := harness.SelectVariant(catalog, harness.NewFeatureSet(harness.FeatureAVX2, harness.FeatureFMA))
	if match == nil || match.Variant != "custom-avx2" {
		t.Errorf("selection over custom catalog = %+v", match)
	}
}

func TestCatalogResolutionHonorsConfigFile(t *testing.T) {
	// detect and run share this path, so both see a config-supplied catalog.
	dir := t.TempDir()
	body := "variants:\n  - name: file-avx\n    required: [avx]\n"
	if err := os.WriteFile(filepath.Join(dir, "llamacheck.yaml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	catalog, err := catalogFromConfig(loadSuiteConfig(dir))
	if err != nil {
		t.Fatalf("catalogFromConfig: %v", err)
	}
	if len(catalog) != 1 || catalog[0].Name != "file-avx" {
		t.Fatalf("catalog from config file = %+v", catalog)
	}

	match := harness.SelectVariant(catalog, harness.NewFeatureSet(harness.FeatureAVX))
	if match == nil || match.Variant != "file-avx" {
		t.Errorf("selection over file catalog = %+v", match)
	}

	// Without a config file the built-in catalog applies.
	catalog, err = catalogFromConfig(loadSuiteConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("catalogFromConfig: %v", err)
	}
	if len(catalog) != len(harness.DefaultVariantCatalog) {
		t.Errorf("missing config file should fall back to the built-in catalog")
	}
}

func TestCatalogFromConfigRejectsUnknownFeature(t *testing.T) {
	cfg := &config.SuiteConfig{
		Variants: []config.VariantConfig{
			{Name: "bad", Required: []string{"AVX99"}},
		},
	}
	if _, err := catalogFromConfig(cfg); err == nil {
		t.Error("unknown feature token must be rejected")
	}
}

func TestCrashPatternsFromConfigMergesDefaults(t *testing.T) {
	if got := crashPatternsFromConfig(&config.SuiteConfig{}); got != nil {
		t.Errorf("no config patterns should yield nil (use supervisor defaults), got %v", got)
	}

	cfg := &config.SuiteConfig{
		CrashPatterns: []config.CrashPatternConfig{{Substring: "unsupported isa"}},
	}
	patterns := crashPatternsFromConfig(cfg)
	if len(patterns) != len(harness.DefaultCrashPatterns)+1 {
		t.Fatalf("pattern count = %d", len(patterns))
	}
	last := patterns[len(patterns)-1]
	if last.Substring != "unsupported isa" || last.Reason != "unsupported isa" {
		t.Errorf("custom pattern = %+v; reason should default to the substring", last)
	}
}

func TestClassifyStartupFailure(t *testing.T) {
	cpuErr := fmt.Errorf("wrapped: %w", &harness.ProcessExitedError{CPUCompat: true, Reason: "SIGILL"})
	if got := classifyStartupFailure(cpuErr); got != harness.OutcomeCPUIncompat {
		t.Errorf("classifyStartupFailure(cpu) = %s", got)
	}

	genErr := &harness.ProcessExitedError{ExitCode: 1}
	if got := classifyStartupFailure(genErr); got != harness.OutcomeStartupFailed {
		t.Errorf("classifyStartupFailure(generic) = %s", got)
	}

	if got := classifyStartupFailure(errors.New("timeout")); got != harness.OutcomeStartupFailed {
		t.Errorf("classifyStartupFailure(other) = %s", got)
	}
}

func TestFirstNonZero(t *testing.T) {
	if got := firstNonZero(0, 0, 7, 9); got != 7 {
		t.Errorf("firstNonZero = %d, want 7", got)
	}
	if got := firstNonZero(); got != 0 {
		t.Errorf("firstNonZero() = %d, want 0", got)
	}
}
