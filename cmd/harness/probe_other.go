//go:build !amd64

package harness

import (
	"fmt"
	"runtime"
)

// probeArch on non-x86 architectures yields no features; the prebuilt x86-64
// variant catalog has nothing to offer these hosts.
func probeArch() (FeatureSet, string) {
	return make(FeatureSet), fmt.Sprintf("CPU feature probing not supported on %s; no optimized x86-64 variant applies", runtime.GOARCH)
}
