package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/logger"
)

type runIDKey struct{}

// WithRunID returns ctx tagged with a workflow run ID. Diagnostic entries
// recorded under ctx carry the ID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// ensureRunID tags ctx with a new run ID unless it already has one.
func ensureRunID(ctx context.Context) context.Context {
	if RunIDFromContext(ctx) != "" {
		return ctx
	}
	return WithRunID(ctx, uuid.NewString())
}

// recorder writes diagnostic entries. A nil sink discards them.
// Record failures are logged and never returned.
type recorder struct {
	sink driven.DiagnosticSink
	now  func() time.Time
}

func newRecorder(sink driven.DiagnosticSink) recorder {
	return recorder{sink: sink, now: time.Now}
}

func (r recorder) record(ctx context.Context, level domain.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	switch level {
	case domain.LogInfo:
		logger.Info("%s", msg)
	case domain.LogWarn:
		logger.Warn("%s", msg)
	default:
		logger.Debug("[%s] %s", level, msg)
	}

	if r.sink == nil {
		return
	}
	entry := domain.LogEntry{
		Time:    r.now(),
		Level:   level,
		RunID:   RunIDFromContext(ctx),
		Message: msg,
	}
	// Entries are recorded even after ctx is cancelled.
	if err := r.sink.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("diagnostic sink: %v", err)
	}
}

func (r recorder) info(ctx context.Context, format string, args ...any) {
	r.record(ctx, domain.LogInfo, format, args...)
}

func (r recorder) warn(ctx context.Context, format string, args ...any) {
	r.record(ctx, domain.LogWarn, format, args...)
}

func (r recorder) critical(ctx context.Context, format string, args ...any) {
	r.record(ctx, domain.LogCritical, format, args...)
}
