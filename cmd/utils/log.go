package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	debugOnce   sync.Once
	debugFile   *os.File
	debugLogger *log.Logger
	enableDebug bool

	// Compiled once at startup. Order matters: specific patterns before generic ones.
	sensitivePatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		// HuggingFace access tokens (used for gated model downloads)
		{regexp.MustCompile(`\bhf_[a-zA-Z0-9]{20,}`), "[REDACTED-HF-TOKEN]"},
		// GitHub tokens (used against api.github.com for release lookups)
		{regexp.MustCompile(`\bgh[pousr]_[a-zA-Z0-9]{20,}`), "[REDACTED-GH-TOKEN]"},
		// Authorization header values
		{regexp.MustCompile(`(?i)(authorization[=:\s]+['"]?)(Basic|Bearer|Digest)\s+[a-zA-Z0-9\-_\.=]+`), "${1}${2} [REDACTED]"},
		// Bearer tokens (standalone)
		{regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_\.]+`), "${1}[REDACTED]"},
		// API keys and tokens in key=value form
		{regexp.MustCompile(`(?i)(api[_-]?key[=:\s]+['"]?)[a-zA-Z0-9\-_]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(token[=:\s]+['"]?)[a-zA-Z0-9\-_\.]{16,}`), "${1}[REDACTED]"},
	}
)

// InitDebugLogger initializes the shared file-backed debug logger.
// If path is empty it defaults to "llamacheck-debug.log" in the working
// directory. Safe to call multiple times.
func InitDebugLogger(path string, debug bool) error {
	enableDebug = debug
	var initErr error
	debugOnce.Do(func() {
		if path == "" {
			wd, _ := os.Getwd()
			path = filepath.Join(wd, "llamacheck-debug.log")
		}

		// Bubble Tea's LogToFile handles file creation and log prefix setup.
		f, err := tea.LogToFile(path, "debug")
		if err != nil {
			initErr = err
			return
		}

		debugFile = f
		debugLogger = log.New(f, "", log.LstdFlags)
	})
	return initErr
}

// CloseDebugLogger closes the underlying debug log file if it was opened.
func CloseDebugLogger() {
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
	}
}

// ResetDebugLoggerForTesting resets the debug logger state so tests can
// reinitialize it with a different file path. Only call from tests.
func ResetDebugLoggerForTesting() {
	CloseDebugLogger()
	debugOnce = sync.Once{}
	debugFile = nil
	debugLogger = nil
}

// sanitizeLogMessage redacts token-shaped substrings before they hit disk.
// Captured server stderr can echo request headers, so this runs on every line.
func sanitizeLogMessage(msg string) string {
	sanitized := msg
	for _, sp := range sensitivePatterns {
		sanitized = sp.pattern.ReplaceAllString(sanitized, sp.replacement)
	}
	return sanitized
}

// LogDebug writes a debug message to the debug log file and, when debug mode
// is enabled, mirrors it to stderr. A no-op until InitDebugLogger has run, so
// quiet runs never leave a log file behind.
func LogDebug(msg string) {
	if debugLogger == nil {
		return
	}

	sanitized := sanitizeLogMessage(msg)
	debugLogger.Println(sanitized)

	if enableDebug {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", sanitized)
	}
}
