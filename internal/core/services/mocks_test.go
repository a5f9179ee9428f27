package services

import (
	"context"
	"os"
	"sync"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockSession implements driven.PortalSession with canned responses.
type mockSession struct {
	mu sync.Mutex

	portal string
	user   string

	item    *domain.Item
	itemErr error

	job       *domain.ExportJob
	exportErr error

	// statuses are returned in order; the last one repeats.
	statuses  []domain.ExportStatus
	statusErr error

	data        []byte
	downloadErr error

	deleteErr error

	polls     int
	downloads int
	deleted   []string
	closed    bool
}

func newMockSession(data []byte) *mockSession {
	return &mockSession{
		portal: "https://www.arcgis.com",
		user:   "gis_analyst",
		item:   &domain.Item{ID: "abc123", Title: "Trailheads", Type: "Feature Service", Owner: "gis_analyst"},
		job: &domain.ExportJob{
			JobID:        "job-1",
			ExportItemID: "export-1",
			SourceItemID: "abc123",
			Format:       domain.ExportFormatCSV,
		},
		statuses: []domain.ExportStatus{{State: domain.ExportCompleted}},
		data:     data,
	}
}

func (m *mockSession) PortalURL() string { return m.portal }
func (m *mockSession) Username() string  { return m.user }

func (m *mockSession) Item(_ context.Context, itemID string) (*domain.Item, error) {
	if m.itemErr != nil {
		return nil, m.itemErr
	}
	if m.item == nil || m.item.ID != itemID {
		return nil, domain.ErrNotFound
	}
	item := *m.item
	return &item, nil
}

func (m *mockSession) Export(_ context.Context, _, _ string, _ domain.ExportFormat) (*domain.ExportJob, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	job := *m.job
	return &job, nil
}

func (m *mockSession) ExportStatus(ctx context.Context, _ domain.ExportJob) (domain.ExportStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.ExportStatus{}, err
	}
	if m.statusErr != nil {
		return domain.ExportStatus{}, m.statusErr
	}
	i := m.polls
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	m.polls++
	return m.statuses[i], nil
}

func (m *mockSession) Download(_ context.Context, _, destPath string) (int64, error) {
	m.mu.Lock()
	m.downloads++
	m.mu.Unlock()

	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	if err := os.WriteFile(destPath, m.data, 0o600); err != nil {
		return 0, err
	}
	return int64(len(m.data)), nil
}

func (m *mockSession) DeleteItem(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, itemID)
	return nil
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSession) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// mockAuthenticator implements driven.Authenticator.
type mockAuthenticator struct {
	mode     domain.CredentialMode
	session  driven.PortalSession
	err      error
	profiles []domain.ConnectionProfile
}

func (a *mockAuthenticator) Mode() domain.CredentialMode { return a.mode }

func (a *mockAuthenticator) Authenticate(_ context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error) {
	a.profiles = append(a.profiles, profile)
	if a.err != nil {
		return nil, a.err
	}
	return a.session, nil
}

// mockFactory implements driven.AuthenticatorFactory.
type mockFactory map[domain.CredentialMode]driven.Authenticator

func (f mockFactory) ForMode(mode domain.CredentialMode) (driven.Authenticator, error) {
	a, ok := f[mode]
	if !ok {
		return nil, domain.ErrInvalidInput
	}
	return a, nil
}

// mockLogin implements driven.InteractiveAuthenticator.
type mockLogin struct {
	creds    *domain.Credentials
	err      error
	profiles []domain.ConnectionProfile
}

func (l *mockLogin) Login(_ context.Context, profile domain.ConnectionProfile) (*domain.Credentials, error) {
	l.profiles = append(l.profiles, profile)
	if l.err != nil {
		return nil, l.err
	}
	return l.creds, nil
}

// failingSink implements driven.DiagnosticSink and always fails.
type failingSink struct{ err error }

func (s failingSink) Record(context.Context, domain.LogEntry) error { return s.err }
