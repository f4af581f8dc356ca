package harness

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// ServerState tracks where a supervised server is in its lifecycle.
// NotStarted -> Starting -> {Healthy | Crashed | TimedOut} -> Stopped.
// Stopped is absorbing: a stopped handle cannot be reused.
type ServerState int

const (
	StateNotStarted ServerState = iota
	StateStarting
	StateHealthy
	StateCrashed
	StateTimedOut
	StateStopped
)

func (s ServerState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateHealthy:
		return "healthy"
	case StateCrashed:
		return "crashed"
	case StateTimedOut:
		return "timed-out"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	defaultPollInterval    = 1 * time.Second
	defaultMaxPollAttempts = 30
	gracefulStopTimeout    = 5 * time.Second
)

// ServerOptions tunes a supervised server. The zero value is usable; every
// field has a default.
type ServerOptions struct {
	Port            int           // 0 picks a random free port
	PollInterval    time.Duration // delay between health polls
	MaxPollAttempts int           // poll budget before giving up
	ContextSize     int           // passed as -c when > 0
	GPULayers       int           // passed as -ngl when > 0
	BatchSize       int           // passed as -b when > 0
	CrashPatterns   []CrashPattern
	Client          utils.HTTPClient // health poll client; nil uses a short-timeout default
}

// ServerHandle owns exactly one llama-server subprocess for one lifecycle.
// Handles are not shared: concurrent suites each create their own handle on
// their own port.
type ServerHandle struct {
	exePath   string
	modelPath string
	port      int
	opts      ServerOptions

	mu       sync.Mutex
	state    ServerState
	cmd      *exec.Cmd
	stdout   *captureBuffer
	stderr   *captureBuffer
	done     chan struct{} // closed once the process has been reaped
	exitCode int
}

// NewServer prepares a handle for the given executable and model. The port is
// selected here and fixed for the handle's lifetime.
func NewServer(exePath, modelPath string, opts ServerOptions) (*ServerHandle, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = defaultMaxPollAttempts
	}
	if opts.CrashPatterns == nil {
		opts.CrashPatterns = DefaultCrashPatterns
	}
	if opts.Client == nil {
		opts.Client = utils.GetHTTPClientWithTimeout(10 * time.Second)
	}

	port := opts.Port
	if port == 0 {
		var err error
		port, err = FindFreePort()
		if err != nil {
			return nil, err
		}
	}

	return &ServerHandle{
		exePath:   exePath,
		modelPath: modelPath,
		port:      port,
		opts:      opts,
		state:     StateNotStarted,
		stdout:    &captureBuffer{},
		stderr:    &captureBuffer{},
		done:      make(chan struct{}),
	}, nil
}

// Port returns the port the server is (or will be) bound to.
func (h *ServerHandle) Port() int { return h.port }

// URL returns the base URL of the supervised server.
func (h *ServerHandle) URL() string { return fmt.Sprintf("http://127.0.0.1:%d", h.port) }

// State returns the current lifecycle state.
func (h *ServerHandle) State() ServerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Setup starts the server process and blocks until it is Healthy, has
// Crashed, or the poll budget is exhausted (TimedOut). On TimedOut the
// process is cleaned up before the error is returned.
func (h *ServerHandle) Setup() error {
	h.mu.Lock()
	if h.state != StateNotStarted {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("server handle already used (state %s); create a new handle", state)
	}

	if err := h.checkExecutable(); err != nil {
		h.mu.Unlock()
		return err
	}

	if err := h.spawn(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.state = StateStarting
	h.mu.Unlock()

	utils.LogDebug(fmt.Sprintf("Started server %s (PID %d) on port %d", h.exePath, h.cmd.Process.Pid, h.port))
	return h.pollUntilHealthy()
}

// checkExecutable fails fast before anything is spawned. Missing and
// non-executable are distinct error kinds.
func (h *ServerHandle) checkExecutable() error {
	info, err := os.Stat(h.exePath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingExecutable, h.exePath)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%w: %s (chmod +x to fix)", ErrNotExecutable, h.exePath)
	}
	return nil
}

func (h *ServerHandle) spawn() error {
	args := []string{
		"--model", h.modelPath,
		"--port", fmt.Sprintf("%d", h.port),
		"--host", "127.0.0.1",
	}
	if h.opts.ContextSize > 0 {
		args = append(args, "-c", fmt.Sprintf("%d", h.opts.ContextSize))
	}
	if h.opts.GPULayers > 0 {
		args = append(args, "-ngl", fmt.Sprintf("%d", h.opts.GPULayers))
	}
	if h.opts.BatchSize > 0 {
		args = append(args, "-b", fmt.Sprintf("%d", h.opts.BatchSize))
	}

	cmd := exec.Command(h.exePath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server process: %w", err)
	}
	h.cmd = cmd

	// Drain both pipes from spawn time so crash diagnostics are never lost
	// to OS pipe buffering, and so a full pipe can never stall the child.
	var drained sync.WaitGroup
	drained.Add(2)
	go h.captureOutput(stdout, h.stdout, "stdout", &drained)
	go h.captureOutput(stderr, h.stderr, "stderr", &drained)

	go func() {
		drained.Wait()
		err := cmd.Wait()
		h.mu.Lock()
		if cmd.ProcessState != nil {
			h.exitCode = cmd.ProcessState.ExitCode()
		} else if err != nil {
			h.exitCode = -1
		}
		h.mu.Unlock()
		close(h.done)
	}()

	return nil
}

// captureOutput copies one pipe into its buffer line by line, mirroring each
// line to the debug log. Runs until the pipe closes on process exit.
func (h *ServerHandle) captureOutput(r io.Reader, buf *captureBuffer, name string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.appendLine(line)
		utils.LogDebug(fmt.Sprintf("[server %s] %s", name, line))
	}
}

func (h *ServerHandle) pollUntilHealthy() error {
	healthURL := h.URL() + "/health"

	for attempt := 1; attempt <= h.opts.MaxPollAttempts; attempt++ {
		if h.healthOK(healthURL) {
			h.mu.Lock()
			h.state = StateHealthy
			h.mu.Unlock()
			utils.LogDebug(fmt.Sprintf("Server healthy on port %d after %d poll attempt(s)", h.port, attempt))
			return nil
		}

		// The server not answering may mean it is still loading the model,
		// or that it already died. Only the latter ends polling early.
		if h.processExited() {
			return h.reportCrash()
		}

		time.Sleep(h.opts.PollInterval)
	}

	h.mu.Lock()
	h.state = StateTimedOut
	h.mu.Unlock()

	timeoutErr := &TimeoutError{
		Attempts: h.opts.MaxPollAttempts,
		Stdout:   h.stdout.String(),
		Stderr:   h.stderr.String(),
	}

	// The process is still running but unwanted; tear it down before
	// surfacing the failure.
	if err := h.Cleanup(); err != nil {
		utils.LogDebug(fmt.Sprintf("Warning: cleanup after startup timeout failed: %v", err))
	}

	return timeoutErr
}

// healthOK reports whether one poll attempt succeeded. Ready means HTTP 200
// AND a JSON object body with "status" equal to "ok"; a 200 with any other
// body is not-yet-ready, never success and never failure.
func (h *ServerHandle) healthOK(healthURL string) bool {
	req, err := http.NewRequest(http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "ok"
}

func (h *ServerHandle) processExited() bool {
	select {
	case <-h.done:
		return true
	default:
	}
	return !isProcessAlive(h.cmd.Process.Pid)
}

// reportCrash collects captured output, classifies the failure, and moves the
// handle to Crashed.
func (h *ServerHandle) reportCrash() error {
	// Give the reap goroutine a moment to collect the exit code and flush
	// the output buffers.
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
	}

	h.mu.Lock()
	h.state = StateCrashed
	exitCode := h.exitCode
	h.mu.Unlock()

	stderr := h.stderr.String()
	crashErr := &ProcessExitedError{
		ExitCode: exitCode,
		Stdout:   h.stdout.String(),
		Stderr:   stderr,
	}
	if reason, ok := classifyCrash(stderr, h.opts.CrashPatterns); ok {
		crashErr.CPUCompat = true
		crashErr.Reason = reason
	}
	return crashErr
}

// Cleanup terminates the server process if it is still running. It is
// idempotent and safe on a handle that never reached Healthy; an
// already-exited process is success, not an error. After Cleanup returns the
// process and its children are gone and the port is free for reuse.
func (h *ServerHandle) Cleanup() error {
	h.mu.Lock()
	if h.state == StateStopped {
		h.mu.Unlock()
		return nil
	}
	h.state = StateStopped
	cmd := h.cmd
	h.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-h.done:
		return nil // already gone
	default:
	}

	pid := cmd.Process.Pid
	utils.LogDebug(fmt.Sprintf("Stopping server process (PID %d)", pid))

	// Graceful first; llama-server shuts down cleanly on interrupt.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill server process: %w", err)
		}
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(gracefulStopTimeout):
	}

	// Graceful shutdown timed out: kill the whole tree so no child keeps the
	// port or the model file open.
	utils.LogDebug(fmt.Sprintf("Graceful shutdown timed out for PID %d, killing process tree", pid))
	killProcessTree(pid)

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

// killProcessTree force-kills a process and all of its descendants,
// children first. Processes that vanish mid-walk are fine.
func killProcessTree(pid int) {
	if proc, err := process.NewProcess(int32(pid)); err == nil {
		for _, child := range collectChildren(proc) {
			if err := child.Kill(); err != nil {
				utils.LogDebug(fmt.Sprintf("Warning: could not kill child PID %d: %v", child.Pid, err))
			}
		}
		if err := proc.Kill(); err != nil {
			utils.LogDebug(fmt.Sprintf("Warning: could not kill PID %d: %v", pid, err))
		}
		return
	}

	// Process table lookup failed; fall back to a direct kill.
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}

// collectChildren returns all descendants of proc, depth first.
func collectChildren(proc *process.Process) []*process.Process {
	var out []*process.Process
	children, err := proc.Children()
	if err != nil {
		return out
	}
	for _, child := range children {
		out = append(out, collectChildren(child)...)
		out = append(out, child)
	}
	return out
}

// captureBuffer is a goroutine-safe line buffer for captured process output.
type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *captureBuffer) appendLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
}

func (b *captureBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
