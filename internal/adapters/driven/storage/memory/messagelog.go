package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Ensure MessageLog implements the interfaces.
var (
	_ driven.DiagnosticSink = (*MessageLog)(nil)
	_ driven.MessageLog     = (*MessageLog)(nil)
)

// MessageLog is an in-memory diagnostic sink.
type MessageLog struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
}

// NewMessageLog creates an empty in-memory message log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Record appends an entry.
func (l *MessageLog) Record(_ context.Context, entry domain.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first.
// A non-positive limit returns all entries.
func (l *MessageLog) Recent(_ context.Context, limit int) ([]domain.LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.LogEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, l.entries[i])
	}
	return result, nil
}

// Entries returns all entries in recording order.
func (l *MessageLog) Entries() []domain.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.LogEntry(nil), l.entries...)
}

// Messages returns the messages of entries at level, in recording order.
// An empty level matches every entry.
func (l *MessageLog) Messages(level domain.LogLevel) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
