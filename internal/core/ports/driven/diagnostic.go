package driven

import (
	"context"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// DiagnosticSink appends human-readable status and error messages to a
// persistent log. Sinks never influence workflow control flow; callers log
// and continue when Record fails.
type DiagnosticSink interface {
	Record(ctx context.Context, entry domain.LogEntry) error
}

// MessageLog reads back recorded diagnostic messages.
type MessageLog interface {
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.LogEntry, error)
}
