package harness

import (
	"testing"
)

func TestSplitFlagTokens(t *testing.T) {
	got := splitFlagTokens("FPU VME SSE4_2  avx\tAVX2\n")
	want := []string{"fpu", "vme", "sse4_2", "avx", "avx2"}
	if len(got) != len(want) {
		t.Fatalf("splitFlagTokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTranslateFlagsDropsUnknownTokens(t *testing.T) {
	mapping := map[string]Feature{
		"avx2":  FeatureAVX2,
		"f16c":  FeatureF16C,
		"sse4_2": FeatureSSE42,
	}

	got := translateFlags("fpu avx2 fancy_new_flag f16c", mapping)
	if len(got) != 2 {
		t.Fatalf("translateFlags = %v, want 2 features", got)
	}
	if got[0] != FeatureAVX2 || got[1] != FeatureF16C {
		t.Errorf("translateFlags = %v, want [AVX2 F16C]", got)
	}
}

func TestTranslateFlagsIsCaseInsensitive(t *testing.T) {
	mapping := map[string]Feature{"avx512f": FeatureAVX512F}
	got := translateFlags("AVX512F", mapping)
	if len(got) != 1 || got[0] != FeatureAVX512F {
		t.Errorf("translateFlags = %v, want [AVX512F]", got)
	}
}

func TestProbeFeaturesNeverFails(t *testing.T) {
	// Probing must always return a usable result on any host the tests
	// run on, even when a flag source is unavailable.
	result := ProbeFeatures()
	if result.Features == nil {
		t.Fatal("ProbeFeatures returned a nil feature set")
	}
}
