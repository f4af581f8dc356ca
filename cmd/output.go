package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// MessageType represents the type of output message
type MessageType int

const (
	InfoMessage MessageType = iota
	WarningMessage
	ErrorMessage
	SuccessMessage
	ProgressMessage
	DebugMessage
)

// OutputMessage represents a message to be displayed
type OutputMessage struct {
	Type    MessageType
	Content string
	Writer  io.Writer
	NoEmoji bool
}

// OutputManager manages all CLI output routing
type OutputManager struct {
	mu            sync.RWMutex
	disableEmojis bool
}

var outputManager = &OutputManager{}

// SetEmojiEnabled controls whether emojis are added to output messages globally
func SetEmojiEnabled(enabled bool) {
	outputManager.mu.Lock()
	defer outputManager.mu.Unlock()
	outputManager.disableEmojis = !enabled
}

// EmojiEnabled returns whether emojis are currently enabled
func EmojiEnabled() bool {
	outputManager.mu.RLock()
	defer outputManager.mu.RUnlock()
	return !outputManager.disableEmojis
}

func sendMessage(msgType MessageType, format string, args ...interface{}) {
	sendMessageWithOptions(msgType, false, format, args...)
}

func sendMessageWithOptions(msgType MessageType, noEmoji bool, format string, args ...interface{}) {
	content := fmt.Sprintf(format, args...)

	outputManager.mu.RLock()
	disableEmojis := outputManager.disableEmojis
	outputManager.mu.RUnlock()

	msg := OutputMessage{
		Type:    msgType,
		Content: content,
		Writer:  getDefaultWriter(msgType),
		NoEmoji: noEmoji || disableEmojis,
	}

	fmt.Fprintln(msg.Writer, FormatMessage(msg))
}

// getDefaultWriter returns the appropriate writer for each message type
func getDefaultWriter(msgType MessageType) io.Writer {
	switch msgType {
	case ErrorMessage, WarningMessage, DebugMessage:
		return os.Stderr
	default:
		return os.Stdout
	}
}

// OutputInfo sends an informational message
func OutputInfo(format string, args ...interface{}) {
	sendMessage(InfoMessage, format, args...)
}

// OutputInfoPlain sends an informational message without emoji
func OutputInfoPlain(format string, args ...interface{}) {
	sendMessageWithOptions(InfoMessage, true, format, args...)
}

// OutputWarning sends a warning message
func OutputWarning(format string, args ...interface{}) {
	sendMessage(WarningMessage, format, args...)
}

// OutputError sends an error message
func OutputError(format string, args ...interface{}) {
	sendMessage(ErrorMessage, format, args...)
}

// OutputSuccess sends a success message
func OutputSuccess(format string, args ...interface{}) {
	sendMessage(SuccessMessage, format, args...)
}

// OutputProgress sends a progress message
func OutputProgress(format string, args ...interface{}) {
	sendMessage(ProgressMessage, format, args...)
}

// OutputDebug sends a debug message (respects the global debug flag)
func OutputDebug(format string, args ...interface{}) {
	if !debug {
		return
	}
	sendMessage(DebugMessage, format, args...)
}

// FormatMessage formats a message for terminal display
func FormatMessage(msg OutputMessage) string {
	if msg.NoEmoji {
		return msg.Content
	}

	var prefix string
	switch msg.Type {
	case InfoMessage:
		prefix = "ℹ️"
	case WarningMessage:
		prefix = "⚠️"
	case ErrorMessage:
		prefix = "❌"
	case SuccessMessage:
		prefix = "✅"
	case ProgressMessage:
		prefix = "🔄"
	case DebugMessage:
		prefix = "🐛"
	}

	return fmt.Sprintf("%s  %s", prefix, msg.Content)
}
