package harness

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for precondition failures; both are reported before any
// subprocess is spawned.
var (
	ErrMissingExecutable = errors.New("server executable not found")
	ErrNotExecutable     = errors.New("server executable is not executable")
)

// CrashPattern is one stderr signature with a human explanation. The pattern
// list is configuration data, not supervisor logic: a suite config can extend
// it without touching the lifecycle code.
type CrashPattern struct {
	Substring string `yaml:"substring" toml:"substring" json:"substring"`
	Reason    string `yaml:"reason" toml:"reason" json:"reason"`
}

// DefaultCrashPatterns are the stderr signatures of a binary that uses
// instructions the host CPU does not implement. Matching is case-insensitive
// substring search.
var DefaultCrashPatterns = []CrashPattern{
	{Substring: "illegal instruction", Reason: "binary executed an instruction the CPU does not support"},
	{Substring: "invalid opcode", Reason: "kernel reported an invalid opcode fault"},
	{Substring: "sigill", Reason: "process was killed by SIGILL"},
	{Substring: "undefined symbol: avx", Reason: "binary links AVX symbols missing on this platform"},
	{Substring: "undefined symbol: sse", Reason: "binary links SSE symbols missing on this platform"},
}

// ProcessExitedError reports a server process that died during startup.
// CPUCompat distinguishes an ISA mismatch (wrong variant for this CPU) from a
// generic unexpected exit.
type ProcessExitedError struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	CPUCompat bool
	Reason    string
}

func (e *ProcessExitedError) Error() string {
	if e.CPUCompat {
		return fmt.Sprintf("server crashed with a CPU compatibility failure (%s); exit code %d\nstderr:\n%s",
			e.Reason, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("server process died unexpectedly; exit code %d\nstdout:\n%s\nstderr:\n%s",
		e.ExitCode, e.Stdout, e.Stderr)
}

// TimeoutError reports a server that stayed alive but never became healthy
// within the poll budget.
type TimeoutError struct {
	Attempts int
	Stdout   string
	Stderr   string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("server failed to become healthy within %d poll attempts", e.Attempts)
	if tail := outputTail(e.Stderr, 500); tail != "" {
		msg += "\nstderr tail:\n" + tail
	}
	return msg
}

// outputTail returns at most n trailing bytes of s, cut at a line boundary so
// the report never starts mid-line.
func outputTail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && idx < len(s)-1 {
		s = s[idx+1:]
	}
	return s
}

// classifyCrash scans captured stderr for known CPU incompatibility
// signatures. It returns the matched reason and true on a hit.
func classifyCrash(stderr string, patterns []CrashPattern) (string, bool) {
	haystack := strings.ToLower(stderr)
	for _, p := range patterns {
		if strings.Contains(haystack, strings.ToLower(p.Substring)) {
			return p.Reason, true
		}
	}
	return "", false
}
