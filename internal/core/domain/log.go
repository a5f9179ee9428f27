package domain

import "time"

// LogLevel is the severity of a diagnostic message.
type LogLevel string

const (
	LogInfo     LogLevel = "INFO"
	LogWarn     LogLevel = "WARN"
	LogError    LogLevel = "ERROR"
	LogCritical LogLevel = "CRITICAL"
)

// LogEntry is a human-readable message for the diagnostic sink.
type LogEntry struct {
	Time  time.Time
	Level LogLevel
	// RunID groups the messages of one workflow invocation.
	RunID   string
	Message string
}
