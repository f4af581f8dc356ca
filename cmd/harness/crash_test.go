package harness

import (
	"fmt"
	"strings"
	"testing"
)

func TestClassifyCrash(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   bool
	}{
		{"sigill lowercase", "process received sigill at 0x7f", true},
		{"illegal instruction mixed case", "sh: line 1: Illegal Instruction (core dumped)", true},
		{"invalid opcode", "kernel: traps: llama-server[123] trap invalid opcode", true},
		{"undefined avx symbol", "error: undefined symbol: avx512_gemm_kernel", true},
		{"ordinary crash", "segmentation fault (core dumped)", false},
		{"clean exit text", "model loaded successfully", false},
		{"empty stderr", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, got := classifyCrash(tt.stderr, DefaultCrashPatterns)
			if got != tt.want {
				t.Errorf("classifyCrash(%q) = %v, want %v", tt.stderr, got, tt.want)
			}
			if got && reason == "" {
				t.Error("matched pattern must carry a reason")
			}
		})
	}
}

func TestClassifyCrashCustomPatterns(t *testing.T) {
	patterns := append([]CrashPattern{}, DefaultCrashPatterns...)
	patterns = append(patterns, CrashPattern{Substring: "unsupported isa", Reason: "custom"})

	reason, ok := classifyCrash("runtime check: UNSUPPORTED ISA level", patterns)
	if !ok || reason != "custom" {
		t.Errorf("classifyCrash with custom pattern = (%q, %v)", reason, ok)
	}
}

func TestProcessExitedErrorMessage(t *testing.T) {
	cpuErr := &ProcessExitedError{ExitCode: 132, Stderr: "Illegal instruction", CPUCompat: true, Reason: "SIGILL"}
	if !strings.Contains(cpuErr.Error(), "CPU compatibility failure") {
		t.Errorf("CPU compat error message missing classification: %q", cpuErr.Error())
	}

	genErr := &ProcessExitedError{ExitCode: 1, Stderr: "model file not found"}
	if strings.Contains(genErr.Error(), "CPU compatibility") {
		t.Errorf("generic crash must not claim CPU incompatibility: %q", genErr.Error())
	}
	if !strings.Contains(genErr.Error(), "exit code 1") {
		t.Errorf("crash message missing exit code: %q", genErr.Error())
	}
}

func TestTimeoutErrorCarriesStderrTail(t *testing.T) {
	err := &TimeoutError{Attempts: 30, Stderr: "loading model\nstill allocating buffers\n"}
	msg := err.Error()
	if !strings.Contains(msg, "30 poll attempts") {
		t.Errorf("timeout message missing attempt count: %q", msg)
	}
	if !strings.Contains(msg, "still allocating buffers") {
		t.Errorf("timeout message missing captured stderr: %q", msg)
	}

	// No captured output, no empty trailer.
	bare := &TimeoutError{Attempts: 5}
	if strings.Contains(bare.Error(), "stderr") {
		t.Errorf("timeout without output should not mention stderr: %q", bare.Error())
	}

	// Long output is cut at a line boundary, keeping the end.
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "startup line %d\n", i)
	}
	long := &TimeoutError{Attempts: 30, Stderr: b.String()}
	msg = long.Error()
	if !strings.Contains(msg, "startup line 99") {
		t.Errorf("tail must keep the last lines: %q", msg)
	}
	if strings.Contains(msg, "startup line 0\n") {
		t.Errorf("tail must drop the oldest lines: %q", msg)
	}
}
