// Package diagnostic provides diagnostic sinks that persist workflow
// status and error messages.
package diagnostic

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DiagnosticSink = (*FileSink)(nil)

// TimeLayout is the timestamp format of log lines.
const TimeLayout = "2006-01-02 15:04:05"

// FileConfig configures a rotating file sink.
type FileConfig struct {
	// Path is the log file. Parent directories are created.
	Path string
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int
}

// FileSink appends one line per entry to a rotating text file:
//
//	2006-01-02 15:04:05 | LEVEL | run-id | message
type FileSink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewFileSink creates a sink writing to cfg.Path.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: log file path is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &FileSink{
		w: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		},
	}, nil
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.WriteCloser) *FileSink {
	return &FileSink{w: w}
}

// Record appends entry as a single line.
func (s *FileSink) Record(_ context.Context, entry domain.LogEntry) error {
	line := FormatEntry(entry)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}

// FormatEntry renders entry as a log line including the trailing newline.
// Newlines inside the message are flattened so each entry stays one line.
func FormatEntry(entry domain.LogEntry) string {
	runID := entry.RunID
	if runID == "" {
		runID = "-"
	}
	msg := strings.ReplaceAll(entry.Message, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return fmt.Sprintf("%s | %s | %s | %s\n", entry.Time.Format(TimeLayout), entry.Level, runID, msg)
}
