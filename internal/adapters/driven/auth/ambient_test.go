package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/layerpull/internal/connectors/arcgis/arcgistest"
	"github.com/custodia-labs/layerpull/internal/core/domain"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	return dir
}

func TestAmbientAuthenticator_Mode(t *testing.T) {
	assert.Equal(t, domain.CredentialModeAmbient, NewAmbientAuthenticator().Mode())
}

func TestAmbientAuthenticator_TokenFromEnvironment(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Token = "env-token"
	ctx := srv.Context(context.Background())

	a := NewAmbientAuthenticator(testOptions(WithGetenv(envMap(map[string]string{EnvToken: "env-token"})))...)
	session, err := a.Authenticate(ctx, testProfile(srv.URL, domain.CredentialModeAmbient))
	require.NoError(t, err)
	require.NotNil(t, session)
	defer session.Close()

	assert.Equal(t, "gis_analyst", session.Username())
	assert.Zero(t, srv.Calls("generateToken"))
}

func TestAmbientAuthenticator_PasswordFromDesktopEnvFile(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())
	dir := writeEnvFile(t, "ARCGIS_USERNAME=gis_analyst\nARCGIS_PASSWORD=s3cret\n")

	profile := testProfile(srv.URL, domain.CredentialModeAmbient)
	profile.DesktopEnv = dir

	session, err := NewAmbientAuthenticator(testOptions()...).Authenticate(ctx, profile)
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, "gis_analyst", session.Username())
	assert.Equal(t, 1, srv.Calls("generateToken"))
	assert.Equal(t, 1, srv.TokensIssued())
}

func TestAmbientAuthenticator_ProcessEnvironmentWins(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())
	dir := writeEnvFile(t, "ARCGIS_USERNAME=gis_analyst\nARCGIS_PASSWORD=wrong\n")

	profile := testProfile(srv.URL, domain.CredentialModeAmbient)
	profile.DesktopEnv = dir

	a := NewAmbientAuthenticator(testOptions(WithGetenv(envMap(map[string]string{EnvPassword: "s3cret"})))...)
	session, err := a.Authenticate(ctx, profile)
	require.NoError(t, err)
	defer session.Close()
}

func TestAmbientAuthenticator_PromptsForMissingPassword(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())
	prompter := &stubPrompter{password: "s3cret"}

	a := NewAmbientAuthenticator(testOptions(
		WithGetenv(envMap(map[string]string{EnvUsername: "gis_analyst"})),
		WithPrompter(prompter),
	)...)
	session, err := a.Authenticate(ctx, testProfile(srv.URL, domain.CredentialModeAmbient))
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, 1, prompter.calls)
}

func TestAmbientAuthenticator_NoTerminalForPrompt(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())

	a := NewAmbientAuthenticator(testOptions(
		WithGetenv(envMap(map[string]string{EnvUsername: "gis_analyst"})),
		WithPrompter(&stubPrompter{err: ErrNoTerminal}),
	)...)
	session, err := a.Authenticate(ctx, testProfile(srv.URL, domain.CredentialModeAmbient))
	assert.Nil(t, session)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func TestAmbientAuthenticator_NoCredentials(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())

	profile := testProfile(srv.URL, domain.CredentialModeAmbient)
	profile.ClientID = "ignored-in-ambient-mode"
	profile.DesktopEnv = t.TempDir()

	session, err := NewAmbientAuthenticator(testOptions()...).Authenticate(ctx, profile)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Zero(t, srv.Calls("self"))
	assert.Zero(t, srv.Calls("generateToken"))
}

func TestAmbientAuthenticator_RejectedPassword(t *testing.T) {
	srv := arcgistest.NewServer(t)
	ctx := srv.Context(context.Background())

	a := NewAmbientAuthenticator(testOptions(WithGetenv(envMap(map[string]string{
		EnvUsername: "gis_analyst",
		EnvPassword: "wrong",
	})))...)
	session, err := a.Authenticate(ctx, testProfile(srv.URL, domain.CredentialModeAmbient))
	assert.Nil(t, session)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestAmbientAuthenticator_RejectedToken(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Token = "good"
	ctx := srv.Context(context.Background())

	a := NewAmbientAuthenticator(testOptions(WithGetenv(envMap(map[string]string{EnvToken: "expired"})))...)
	session, err := a.Authenticate(ctx, testProfile(srv.URL, domain.CredentialModeAmbient))
	assert.Nil(t, session)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestAmbientAuthenticator_UnreadableEnvFileIgnored(t *testing.T) {
	srv := arcgistest.NewServer(t)
	srv.Token = "env-token"
	ctx := srv.Context(context.Background())

	dir := t.TempDir()
	// A directory named .env cannot be parsed as a file.
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o755))

	profile := testProfile(srv.URL, domain.CredentialModeAmbient)
	profile.DesktopEnv = dir

	a := NewAmbientAuthenticator(testOptions(WithGetenv(envMap(map[string]string{EnvToken: "env-token"})))...)
	session, err := a.Authenticate(ctx, profile)
	require.NoError(t, err)
	defer session.Close()
}
