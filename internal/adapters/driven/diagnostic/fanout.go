package diagnostic

import (
	"context"
	"errors"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DiagnosticSink = Fanout(nil)

// Fanout records every entry to all of its sinks.
type Fanout []driven.DiagnosticSink

// Record records entry to each sink. All sinks are tried; their errors are
// joined.
func (f Fanout) Record(ctx context.Context, entry domain.LogEntry) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a sink that drops every entry.
type Discard struct{}

// Record does nothing.
func (Discard) Record(context.Context, domain.LogEntry) error { return nil }
