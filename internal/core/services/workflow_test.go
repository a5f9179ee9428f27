package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/layerpull/internal/adapters/driven/archive"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/auth"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/layerpull/internal/adapters/driven/tables"
	"github.com/custodia-labs/layerpull/internal/connectors/arcgis"
	"github.com/custodia-labs/layerpull/internal/connectors/arcgis/arcgistest"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// portalWorkflow wires the real adapters against a fake portal.
type portalWorkflow struct {
	srv      *arcgistest.Server
	ctx      context.Context
	sink     *memory.MessageLog
	workflow *Workflow
	out      string
}

func newPortalWorkflow(t *testing.T, env map[string]string) *portalWorkflow {
	t.Helper()

	srv := arcgistest.NewServer(t)
	sink := memory.NewMessageLog()

	opts := []auth.Option{
		auth.WithGetenv(func(k string) string { return env[k] }),
		auth.WithPrompter(nil),
		auth.WithOutput(&bytes.Buffer{}),
		auth.WithBrowser(func(string) error { return errors.New("no browser in tests") }),
		auth.WithClientOptions(arcgis.WithRateLimiter(arcgis.NewRateLimiterWithRate(0, 1))),
	}
	factory := auth.NewDefaultFactory(memory.NewCredentialsStore(), opts...)

	wf := NewWorkflow(
		NewConnectionService(factory, sink, &bytes.Buffer{}),
		NewExportService(sink, fastExportOptions()),
		archive.NewZipExtractor(),
		tables.NewDelimitedImporter(2),
		sink,
	)

	return &portalWorkflow{
		srv:      srv,
		ctx:      srv.Context(context.Background()),
		sink:     sink,
		workflow: wf,
		out:      t.TempDir(),
	}
}

func (p *portalWorkflow) profile(mode domain.CredentialMode) domain.ConnectionProfile {
	return domain.ConnectionProfile{
		ItemID:         "abc123",
		PortalURL:      p.srv.URL,
		CredentialMode: mode,
	}
}

func TestWorkflow_Run_EndToEnd(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")
	p.srv.Archive = trailheadsArchive(t)
	p.srv.PendingPolls = 2

	profile := p.profile(domain.CredentialModeAmbient)
	profile.ClientID = "ignored-in-ambient-mode"

	got, err := p.workflow.Run(p.ctx, profile, "", p.out)
	require.NoError(t, err)

	assert.Equal(t, []string{"parks", "trails"}, got.Names())
	assert.Equal(t, 2, got["parks"].RowCount())
	assert.Equal(t, 3, got["trails"].RowCount())
	assert.Equal(t, []string{"name", "miles", "surface"}, got["trails"].Columns)
	surface, ok := got["trails"].Value(2, "surface")
	assert.True(t, ok)
	assert.Equal(t, "gravel", surface)

	assert.FileExists(t, filepath.Join(p.out, "Trailheads.zip"))
	assert.FileExists(t, filepath.Join(p.out, "Trailheads", "parks.csv"))
	assert.FileExists(t, filepath.Join(p.out, "Trailheads", "trails.csv"))

	assert.Equal(t, 1, countPrefix(p.sink.Messages(domain.LogInfo), "Downloaded"))
	assert.Equal(t, []string{"export-1"}, p.srv.Deleted())
	assert.Equal(t, 3, p.srv.Calls("status"))

	// All entries of the run share one run ID.
	entries := p.sink.Entries()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, entries[0].RunID, e.RunID)
		assert.NotEmpty(t, e.RunID)
	}
}

func TestWorkflow_Run_AppRegisteredWithoutClientID(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")

	got, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAppRegistered), "", p.out)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Equal(t, domain.KindAuthentication, domain.Kind(err))
	assert.Zero(t, p.srv.Calls("self"))
	assert.Zero(t, p.srv.Calls("item"))
}

func TestWorkflow_Run_ModeOverride(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")
	p.srv.Archive = trailheadsArchive(t)

	// The profile asks for app-registered but the caller overrides to ambient.
	got, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAppRegistered), domain.CredentialModeAmbient, p.out)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWorkflow_Run_UnknownItem(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	out := filepath.Join(p.out, "nested")

	_, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAmbient), "", out)

	assert.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoDirExists(t, out)
	assert.Zero(t, p.srv.Calls("export"))
}

func TestWorkflow_Run_KeysMatchSupportedFiles(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Mixed Bag")
	p.srv.Archive = arcgistest.ZipArchive(t, map[string]string{
		"roads.csv":        "id\n1\n",
		"bridges.TSV":      "id\tspan\n1\t30\n",
		"culverts.tab":     "id\n7\n8\n",
		"README.txt":       "exported layers",
		"metadata.xml":     "<metadata/>",
		"nested/inner.csv": "id\n1\n",
	})

	got, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAmbient), "", p.out)
	require.NoError(t, err)

	assert.Equal(t, []string{"bridges", "culverts", "roads"}, got.Names())
	assert.Equal(t, 4, got.TotalRows())
}

func TestWorkflow_Run_ImportFailureCleansUp(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")
	p.srv.Archive = arcgistest.ZipArchive(t, map[string]string{
		"parks.csv": "name,acres\nAlpine\n",
	})

	got, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAmbient), "", p.out)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrImportFailed)
	assert.Equal(t, domain.KindExtraction, domain.Kind(err))
	assert.NoFileExists(t, filepath.Join(p.out, "Trailheads.zip"))
	assert.NoDirExists(t, filepath.Join(p.out, "Trailheads"))
	assert.Len(t, p.sink.Messages(domain.LogCritical), 1)
}

func TestWorkflow_Run_KeepsExistingTitleDirectory(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")
	p.srv.Archive = trailheadsArchive(t)

	thesis := filepath.Join(p.out, "Trailheads", "notes", "thesis.docx")
	require.NoError(t, os.MkdirAll(filepath.Dir(thesis), 0o755))
	require.NoError(t, os.WriteFile(thesis, []byte("chapter one"), 0o644))

	got, err := p.workflow.Run(p.ctx, p.profile(domain.CredentialModeAmbient), "", p.out)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrExtractFailed)
	data, readErr := os.ReadFile(thesis)
	require.NoError(t, readErr)
	assert.Equal(t, "chapter one", string(data))
	assert.NoFileExists(t, filepath.Join(p.out, "Trailheads", "parks.csv"))
	assert.NoFileExists(t, filepath.Join(p.out, "Trailheads.zip"))
}

func TestWorkflow_Run_RerunReplacesOwnExtraction(t *testing.T) {
	p := newPortalWorkflow(t, map[string]string{auth.EnvToken: "pro-token"})
	p.srv.AddItem("abc123", "Trailheads")
	p.srv.Archive = trailheadsArchive(t)
	profile := p.profile(domain.CredentialModeAmbient)

	_, err := p.workflow.Run(p.ctx, profile, "", p.out)
	require.NoError(t, err)

	got, err := p.workflow.Run(p.ctx, profile, "", p.out)
	require.NoError(t, err)
	assert.Equal(t, []string{"parks", "trails"}, got.Names())
}

func TestWorkflow_Run_InvalidProfile(t *testing.T) {
	authn := &mockAuthenticator{mode: domain.CredentialModeAmbient, session: newMockSession(nil)}
	wf := NewWorkflow(
		NewConnectionService(mockFactory{domain.CredentialModeAmbient: authn}, nil, &bytes.Buffer{}),
		NewExportService(nil, fastExportOptions()),
		archive.NewZipExtractor(),
		tables.NewDelimitedImporter(1),
		nil,
	)

	profile := ambientProfile()
	profile.ItemID = ""
	_, err := wf.Run(context.Background(), profile, "", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, authn.profiles)
}

// stubExtractor fails every extraction with a plain error.
type stubExtractor struct{ err error }

func (s stubExtractor) Extract(context.Context, string, string) ([]string, error) {
	return nil, s.err
}

func TestWorkflow_Run_ClosesSessionOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*mockSession)
		extract error
		wantErr error
	}{
		{"success", func(*mockSession) {}, nil, nil},
		{"lookup failure", func(s *mockSession) { s.itemErr = errors.New("gone") }, nil, domain.ErrLookupFailed},
		{"export failure", func(s *mockSession) { s.exportErr = errors.New("rejected") }, nil, domain.ErrExportFailed},
		{"extract failure", func(*mockSession) {}, errors.New("bad entry"), domain.ErrExtractFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newMockSession(trailheadsArchive(t))
			tt.setup(session)
			authn := &mockAuthenticator{mode: domain.CredentialModeAmbient, session: session}

			var extractor driven.ArchiveExtractor = archive.NewZipExtractor()
			if tt.extract != nil {
				extractor = stubExtractor{err: tt.extract}
			}

			wf := NewWorkflow(
				NewConnectionService(mockFactory{domain.CredentialModeAmbient: authn}, nil, &bytes.Buffer{}),
				NewExportService(nil, fastExportOptions()),
				extractor,
				tables.NewDelimitedImporter(1),
				nil,
			)
			out := t.TempDir()
			_, err := wf.Run(context.Background(), ambientProfile(), "", out)

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, session.isClosed())

			if tt.extract != nil {
				_, statErr := os.Stat(filepath.Join(out, "Trailheads.zip"))
				assert.True(t, os.IsNotExist(statErr))
			}
		})
	}
}
