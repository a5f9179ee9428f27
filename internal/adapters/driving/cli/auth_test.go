package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

func TestAuthCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range authCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"login", "logout", "status"}, names)
}

func TestAuthLogin(t *testing.T) {
	ts := setupTestServices(t)
	ts.config.ClientID = "fromconfig"

	code, out, errOut := run(t, "auth", "login", "--portal", "https://gis.example.org/portal/")
	require.Equal(t, ExitOK, code, errOut)

	p := ts.credentials.loginProfile
	assert.Equal(t, "https://gis.example.org/portal/", p.PortalURL)
	assert.Equal(t, "fromconfig", p.ClientID)
	assert.Equal(t, domain.CredentialModeAppRegistered, p.CredentialMode)
	assert.Contains(t, out, "Signed in to https://gis.example.org/portal as gis_analyst")
}

func TestAuthLogin_Failure(t *testing.T) {
	ts := setupTestServices(t)
	ts.credentials.loginErr = domain.ErrAuthRequired

	code, _, _ := run(t, "auth", "login", "--client-id", "abc")
	assert.Equal(t, ExitAuthentication, code)
}

func TestAuthLogout(t *testing.T) {
	ts := setupTestServices(t)

	code, out, errOut := run(t, "auth", "logout", "--client-id", "abcDEF123")
	require.Equal(t, ExitOK, code, errOut)

	assert.Equal(t, [][2]string{{"https://www.arcgis.com", "abcDEF123"}}, ts.credentials.logouts)
	assert.Contains(t, out, "Signed out of https://www.arcgis.com (client abcDEF123)")
}

func TestAuthLogout_NotFound(t *testing.T) {
	ts := setupTestServices(t)
	ts.credentials.logoutErr = domain.ErrNotFound

	code, _, errOut := run(t, "auth", "logout", "--client-id", "abcDEF123")

	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "no cached sign-in")
}

func TestAuthStatus(t *testing.T) {
	ts := setupTestServices(t)

	code, out, _ := run(t, "auth", "status")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "No cached sign-ins.")

	ts.credentials.list = []domain.Credentials{{
		PortalURL: "https://gis.example.org/portal",
		ClientID:  "abcDEF123",
		Username:  "gis_analyst",
		OAuth: &domain.OAuthCredentials{
			AccessToken:  "tok",
			RefreshToken: "ref",
			Expiry:       time.Now().Add(-time.Hour),
		},
	}}

	code, out, _ = run(t, "auth", "status")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "gis_analyst")
	assert.Contains(t, out, "expired, refreshable")
}

func TestTokenState(t *testing.T) {
	future := time.Now().Add(2 * time.Hour)
	tests := []struct {
		name  string
		creds domain.Credentials
		want  string
	}{
		{"no tokens", domain.Credentials{}, "signed out"},
		{"expired without refresh", domain.Credentials{OAuth: &domain.OAuthCredentials{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}}, "signed out"},
		{"no expiry", domain.Credentials{OAuth: &domain.OAuthCredentials{AccessToken: "a"}}, "valid"},
		{"future expiry", domain.Credentials{OAuth: &domain.OAuthCredentials{AccessToken: "a", Expiry: future}}, "expires "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tokenState(&tt.creds), tt.want)
		})
	}
}
