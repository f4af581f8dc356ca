//go:build !windows

package harness

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// scriptedClient replays a fixed sequence of health responses, then repeats
// the last one. A nil entry simulates a connection error.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*scriptedResponse
	calls     int
}

type scriptedResponse struct {
	status int
	body   string
}

func (c *scriptedClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.calls
	c.calls++
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	r := c.responses[idx]
	if r == nil {
		return nil, fmt.Errorf("connection refused")
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
	}, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestSetupMissingExecutable(t *testing.T) {
	server, err := NewServer(filepath.Join(t.TempDir(), "no-such-binary"), "model.gguf", ServerOptions{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	err = server.Setup()
	if !errors.Is(err, ErrMissingExecutable) {
		t.Fatalf("Setup = %v, want ErrMissingExecutable", err)
	}
	if server.State() != StateNotStarted {
		t.Errorf("state = %s, want NotStarted", server.State())
	}
}

func TestSetupNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llama-server-haswell")
	if err := os.WriteFile(path, []byte("not a binary"), 0644); err != nil {
		t.Fatal(err)
	}

	server, err := NewServer(path, "model.gguf", ServerOptions{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	err = server.Setup()
	if !errors.Is(err, ErrNotExecutable) {
		t.Fatalf("Setup = %v, want ErrNotExecutable", err)
	}
}

func TestSetupBecomesHealthyAfterRetries(t *testing.T) {
	exe := writeScript(t, "llama-server-generic", "exec sleep 60\n")

	// Two not-ready polls (one of them a 200 without status ok, which must
	// not count as healthy), then ready.
	client := &scriptedClient{responses: []*scriptedResponse{
		nil,
		{status: http.StatusOK, body: `{"status":"loading model"}`},
		{status: http.StatusOK, body: `{"status":"ok"}`},
	}}

	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval:    10 * time.Millisecond,
		MaxPollAttempts: 20,
		Client:          client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer server.Cleanup()

	if err := server.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if server.State() != StateHealthy {
		t.Errorf("state = %s, want Healthy", server.State())
	}
	if got := client.callCount(); got != 3 {
		t.Errorf("health polls = %d, want 3", got)
	}
}

func TestSetupClassifiesCPUCompatibilityCrash(t *testing.T) {
	exe := writeScript(t, "llama-server-zen4",
		"echo 'loading model' \n"+
			"echo 'Illegal instruction (core dumped)' >&2\n"+
			"exit 132\n")

	client := &scriptedClient{responses: []*scriptedResponse{nil}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval:    10 * time.Millisecond,
		MaxPollAttempts: 100,
		Client:          client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	err = server.Setup()
	var exited *ProcessExitedError
	if !errors.As(err, &exited) {
		t.Fatalf("Setup = %v, want ProcessExitedError", err)
	}
	if !exited.CPUCompat {
		t.Errorf("crash with SIGILL stderr must classify as CPU incompatibility: %+v", exited)
	}
	if exited.Reason == "" {
		t.Error("CPU compat crash must carry a reason")
	}
	if exited.ExitCode != 132 {
		t.Errorf("exit code = %d, want 132", exited.ExitCode)
	}
	if server.State() != StateCrashed {
		t.Errorf("state = %s, want Crashed", server.State())
	}
}

func TestSetupGenericCrashIsNotCPUCompat(t *testing.T) {
	exe := writeScript(t, "llama-server-generic",
		"echo 'error: model file not found' >&2\n"+
			"exit 1\n")

	client := &scriptedClient{responses: []*scriptedResponse{nil}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval:    10 * time.Millisecond,
		MaxPollAttempts: 100,
		Client:          client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	err = server.Setup()
	var exited *ProcessExitedError
	if !errors.As(err, &exited) {
		t.Fatalf("Setup = %v, want ProcessExitedError", err)
	}
	if exited.CPUCompat {
		t.Errorf("generic crash wrongly classified as CPU incompatibility: %+v", exited)
	}
	if !strings.Contains(exited.Stderr, "model file not found") {
		t.Errorf("stderr not captured: %q", exited.Stderr)
	}
}

func TestSetupTimesOutAndCleansUp(t *testing.T) {
	exe := writeScript(t, "llama-server-generic", "exec sleep 60\n")

	client := &scriptedClient{responses: []*scriptedResponse{
		{status: http.StatusServiceUnavailable, body: `{"status":"loading"}`},
	}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval:    10 * time.Millisecond,
		MaxPollAttempts: 3,
		Client:          client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	err = server.Setup()
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Setup = %v, want TimeoutError", err)
	}
	if timeout.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", timeout.Attempts)
	}
	if got := client.callCount(); got != 3 {
		t.Errorf("health polls = %d, want exactly the budget of 3", got)
	}
	// Timeout provokes its own cleanup; the handle must already be stopped.
	if server.State() != StateStopped {
		t.Errorf("state = %s, want Stopped", server.State())
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	exe := writeScript(t, "llama-server-generic", "exec sleep 60\n")

	client := &scriptedClient{responses: []*scriptedResponse{
		{status: http.StatusOK, body: `{"status":"ok"}`},
	}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval: 10 * time.Millisecond,
		Client:       client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := server.Cleanup(); err != nil {
			t.Fatalf("Cleanup call %d: %v", i+1, err)
		}
	}
	if server.State() != StateStopped {
		t.Errorf("state = %s, want Stopped", server.State())
	}
}

func TestDeferredCleanupRunsOnPanic(t *testing.T) {
	exe := writeScript(t, "llama-server-generic", "exec sleep 60\n")

	client := &scriptedClient{responses: []*scriptedResponse{
		{status: http.StatusOK, body: `{"status":"ok"}`},
	}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{
		PollInterval: 10 * time.Millisecond,
		Client:       client,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	// Callers acquire the server with a deferred Cleanup; a panic between
	// Setup and teardown must still kill the process.
	func() {
		defer func() { recover() }()
		defer server.Cleanup()
		if err := server.Setup(); err != nil {
			t.Fatalf("Setup: %v", err)
		}
		panic("check blew up")
	}()

	if server.State() != StateStopped {
		t.Errorf("state = %s, want Stopped", server.State())
	}
	if isProcessAlive(server.cmd.Process.Pid) {
		t.Error("server process survived the panic path")
	}
}

func TestSetupRejectsReusedHandle(t *testing.T) {
	exe := writeScript(t, "llama-server-generic", "exec sleep 60\n")

	client := &scriptedClient{responses: []*scriptedResponse{
		{status: http.StatusOK, body: `{"status":"ok"}`},
	}}
	server, err := NewServer(exe, "model.gguf", ServerOptions{Client: client})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer server.Cleanup()

	if err := server.Setup(); err == nil {
		t.Fatal("second Setup on the same handle must fail")
	}
}

func TestCleanupOnNeverStartedHandle(t *testing.T) {
	server, err := NewServer("/does/not/exist", "model.gguf", ServerOptions{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Cleanup(); err != nil {
		t.Errorf("Cleanup on unstarted handle: %v", err)
	}
}
