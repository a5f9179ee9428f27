package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/layerpull/internal/connectors/arcgis"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Environment variables read in ambient mode.
const (
	EnvToken    = "ARCGIS_TOKEN"
	EnvUsername = "ARCGIS_USERNAME"
	EnvPassword = "ARCGIS_PASSWORD"
)

// envFileName is looked up inside the desktop environment directory.
const envFileName = ".env"

// Verify interface compliance.
var _ driven.Authenticator = (*AmbientAuthenticator)(nil)

// AmbientAuthenticator signs in with credentials already present on the
// machine: a token or username and password from the process environment
// or the desktop environment's .env file. The profile's ClientID is ignored.
type AmbientAuthenticator struct {
	opts options
}

// NewAmbientAuthenticator creates an ambient-mode authenticator.
func NewAmbientAuthenticator(opts ...Option) *AmbientAuthenticator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &AmbientAuthenticator{opts: o}
}

// Mode returns domain.CredentialModeAmbient.
func (a *AmbientAuthenticator) Mode() domain.CredentialMode {
	return domain.CredentialModeAmbient
}

// Authenticate resolves ambient credentials and verifies them against the portal.
// Returns domain.ErrAuthRequired if none are found and domain.ErrAuthInvalid
// if the portal rejects them.
func (a *AmbientAuthenticator) Authenticate(ctx context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error) {
	portal := profile.NormalizedPortalURL()
	vars := a.lookup(profile.DesktopEnv)

	var ts oauth2.TokenSource
	switch {
	case vars[EnvToken] != "":
		logger.Debug("ambient: using %s", EnvToken)
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: vars[EnvToken], TokenType: "Bearer"})

	case vars[EnvUsername] != "":
		username := vars[EnvUsername]
		password, err := a.password(username, vars[EnvPassword])
		if err != nil {
			return nil, err
		}
		logger.Debug("ambient: generating token for %s", username)
		ts = arcgis.NewPasswordTokenSource(ctx, portal, username, password)
		if _, err := ts.Token(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}

	default:
		return nil, fmt.Errorf("%w: no ambient credentials found; set %s, or %s and %s, in the environment or %s",
			domain.ErrAuthRequired, EnvToken, EnvUsername, EnvPassword, a.envFilePath(profile.DesktopEnv))
	}

	client := arcgis.NewClient(ctx, portal, ts, a.opts.clientOpts...)
	session, err := arcgis.Connect(ctx, client)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (a *AmbientAuthenticator) password(username, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	if a.opts.prompter == nil {
		return "", fmt.Errorf("%w: %s is set but %s is not", domain.ErrAuthRequired, EnvUsername, EnvPassword)
	}
	password, err := a.opts.prompter.Password(fmt.Sprintf("ArcGIS password for %s: ", username))
	if err != nil {
		return "", fmt.Errorf("%w: %s is set but %s is not: %w", domain.ErrAuthRequired, EnvUsername, EnvPassword, err)
	}
	if password == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrAuthRequired)
	}
	return password, nil
}

// lookup merges the desktop .env file with the process environment.
// Process variables win.
func (a *AmbientAuthenticator) lookup(desktopEnv string) map[string]string {
	vars := make(map[string]string)

	if desktopEnv != "" {
		path := a.envFilePath(desktopEnv)
		fileVars, err := a.opts.readEnvFile(path)
		switch {
		case err == nil:
			for _, k := range []string{EnvToken, EnvUsername, EnvPassword} {
				if v := fileVars[k]; v != "" {
					vars[k] = v
				}
			}
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("ambient: no %s in %s", envFileName, desktopEnv)
		default:
			logger.Warn("ambient: failed to read %s: %v", path, err)
		}
	}

	for _, k := range []string{EnvToken, EnvUsername, EnvPassword} {
		if v := a.opts.getenv(k); v != "" {
			vars[k] = v
		}
	}
	return vars
}

func (a *AmbientAuthenticator) envFilePath(desktopEnv string) string {
	if desktopEnv == "" {
		return envFileName
	}
	return filepath.Join(desktopEnv, envFileName)
}
