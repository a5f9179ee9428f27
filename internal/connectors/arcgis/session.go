package arcgis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.PortalSession = (*Session)(nil)

// Session is an authenticated portal session backed by a Client.
type Session struct {
	client   *Client
	username string
	closed   atomic.Bool
	onClose  func() error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCloseHook runs fn once when the session is closed.
func WithCloseHook(fn func() error) SessionOption {
	return func(s *Session) {
		s.onClose = fn
	}
}

// Connect verifies the client's credentials against community/self and
// returns a session for the authenticated user.
func Connect(ctx context.Context, client *Client, opts ...SessionOption) (*Session, error) {
	user, err := client.Self(ctx)
	if err != nil {
		return nil, toDomain(err)
	}
	if user.Username == "" {
		return nil, fmt.Errorf("%w: portal returned no user for the token", domain.ErrAuthInvalid)
	}

	s := &Session{client: client, username: user.Username}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PortalURL returns the portal base URL.
func (s *Session) PortalURL() string {
	return s.client.PortalURL()
}

// Username returns the authenticated portal account.
func (s *Session) Username() string {
	return s.username
}

// Item looks up a content item.
func (s *Session) Item(ctx context.Context, itemID string) (*domain.Item, error) {
	if s.closed.Load() {
		return nil, domain.ErrSessionClosed
	}
	info, err := s.client.Item(ctx, itemID)
	if err != nil {
		return nil, toDomain(err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, itemID)
	}
	return &domain.Item{
		ID:    info.ID,
		Title: info.Title,
		Type:  info.Type,
		Owner: info.Owner,
		Name:  info.Name,
	}, nil
}

// Export starts an export job owned by the session's user.
func (s *Session) Export(ctx context.Context, itemID, title string, format domain.ExportFormat) (*domain.ExportJob, error) {
	if s.closed.Load() {
		return nil, domain.ErrSessionClosed
	}
	resp, err := s.client.Export(ctx, s.username, itemID, title, string(format))
	if err != nil {
		return nil, toDomain(err)
	}
	return &domain.ExportJob{
		JobID:        resp.JobID,
		ExportItemID: resp.ExportItemID,
		SourceItemID: itemID,
		Format:       format,
	}, nil
}

// ExportStatus polls an export job once.
func (s *Session) ExportStatus(ctx context.Context, job domain.ExportJob) (domain.ExportStatus, error) {
	if s.closed.Load() {
		return domain.ExportStatus{}, domain.ErrSessionClosed
	}
	st, err := s.client.ExportStatus(ctx, s.username, job.ExportItemID, job.JobID)
	if err != nil {
		return domain.ExportStatus{}, toDomain(err)
	}
	return domain.ExportStatus{
		State:   exportState(st.Status),
		Message: st.StatusMessage,
	}, nil
}

// exportState maps job status strings. Anything not terminal, such as
// "processing", "partial" or "queued", counts as processing.
func exportState(status string) domain.ExportState {
	switch strings.ToLower(status) {
	case "completed":
		return domain.ExportCompleted
	case "failed":
		return domain.ExportFailed
	default:
		return domain.ExportProcessing
	}
}

// Download writes item data to destPath through a temporary file in the
// same directory, renamed into place once complete.
func (s *Session) Download(ctx context.Context, itemID, destPath string) (int64, error) {
	if s.closed.Load() {
		return 0, domain.ErrSessionClosed
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".layerpull-*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := s.client.Download(ctx, itemID, tmp)
	if syncErr := tmp.Sync(); err == nil && syncErr != nil {
		err = fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, toDomain(err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("move download into place: %w", err)
	}
	return n, nil
}

// DeleteItem removes an item owned by the session's user.
func (s *Session) DeleteItem(ctx context.Context, itemID string) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}
	return toDomain(s.client.DeleteItem(ctx, s.username, itemID))
}

// Close marks the session closed and releases idle connections.
// Closing twice is a no-op.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.client.CloseIdleConnections()
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

