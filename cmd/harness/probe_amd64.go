package harness

import "golang.org/x/sys/cpu"

// cpuidFeatureMap translates golang.org/x/sys/cpu capability bits into the
// harness vocabulary. F16C and AVX_VNNI are not exposed by x/sys/cpu and come
// from the OS flag source instead (see flags_linux.go, flags_darwin.go).
var cpuidFeatureMap = []struct {
	present *bool
	feature Feature
}{
	{&cpu.X86.HasSSE42, FeatureSSE42},
	{&cpu.X86.HasAVX, FeatureAVX},
	{&cpu.X86.HasFMA, FeatureFMA},
	{&cpu.X86.HasAVX2, FeatureAVX2},
	{&cpu.X86.HasAVX512F, FeatureAVX512F},
	{&cpu.X86.HasAVX512VBMI, FeatureAVX512VBMI},
	{&cpu.X86.HasAVX512VNNI, FeatureAVX512VNNI},
	{&cpu.X86.HasAVX512BF16, FeatureAVX512BF16},
	{&cpu.X86.HasAMXTile, FeatureAMXTile},
	{&cpu.X86.HasAMXInt8, FeatureAMXInt8},
}

// probeArch reads CPUID-derived capability bits for x86-64 hosts.
func probeArch() (FeatureSet, string) {
	fs := make(FeatureSet)
	for _, m := range cpuidFeatureMap {
		if *m.present {
			fs[m.feature] = struct{}{}
		}
	}
	return fs, ""
}
