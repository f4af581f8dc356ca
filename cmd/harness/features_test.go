package harness

import (
	"testing"
)

func TestParseFeature(t *testing.T) {
	tests := []struct {
		input string
		want  Feature
		ok    bool
	}{
		{"AVX2", FeatureAVX2, true},
		{"avx2", FeatureAVX2, true},
		{"  avx512_vnni  ", FeatureAVX512VNNI, true},
		{"AMX_INT8", FeatureAMXInt8, true},
		{"avx512vnni", "", false},
		{"", "", false},
		{"pclmulqdq", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseFeature(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseFeature(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFeatureSetContainsAll(t *testing.T) {
	host := NewFeatureSet(FeatureAVX, FeatureAVX2, FeatureFMA, FeatureF16C)

	if !host.ContainsAll(NewFeatureSet(FeatureAVX2, FeatureFMA)) {
		t.Error("expected subset to be contained")
	}
	if !host.ContainsAll(NewFeatureSet()) {
		t.Error("empty requirement must always be satisfied")
	}
	if host.ContainsAll(NewFeatureSet(FeatureAVX512F)) {
		t.Error("missing feature must not be contained")
	}
	if !NewFeatureSet().ContainsAll(NewFeatureSet()) {
		t.Error("empty set must contain the empty requirement")
	}
}

func TestFeatureSetDiff(t *testing.T) {
	host := NewFeatureSet(FeatureAVX, FeatureAVX2, FeatureSSE42)
	required := NewFeatureSet(FeatureAVX)

	diff := host.Diff(required)
	if len(diff) != 2 || !diff.Has(FeatureAVX2) || !diff.Has(FeatureSSE42) {
		t.Errorf("Diff = %v, want {AVX2, SSE42}", diff)
	}
}

func TestFeatureSetSortedIsDeterministic(t *testing.T) {
	fs := NewFeatureSet(FeatureSSE42, FeatureAMXTile, FeatureAVX)
	want := []Feature{FeatureAMXTile, FeatureAVX, FeatureSSE42}

	for i := 0; i < 10; i++ {
		got := fs.Sorted()
		if len(got) != len(want) {
			t.Fatalf("Sorted() = %v, want %v", got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("Sorted() = %v, want %v", got, want)
			}
		}
	}
}

func TestFeatureSetString(t *testing.T) {
	if got := NewFeatureSet().String(); got != "(none)" {
		t.Errorf("empty set String() = %q", got)
	}
	fs := NewFeatureSet(FeatureAVX2, FeatureAVX)
	if got := fs.String(); got != "AVX, AVX2" {
		t.Errorf("String() = %q, want %q", got, "AVX, AVX2")
	}
}
