package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/layerpull/internal/adapters/driven/oauth"
	"github.com/custodia-labs/layerpull/internal/connectors/arcgis"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.Authenticator            = (*AppAuthenticator)(nil)
	_ driven.InteractiveAuthenticator = (*AppAuthenticator)(nil)
)

// AppAuthenticator signs in through an OAuth app registration using the
// authorisation code flow with PKCE. Tokens are cached per portal and
// client ID and refreshed transparently.
type AppAuthenticator struct {
	store driven.CredentialsStore
	opts  options
}

// NewAppAuthenticator creates an app-registered authenticator caching
// tokens in store.
func NewAppAuthenticator(store driven.CredentialsStore, opts ...Option) *AppAuthenticator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &AppAuthenticator{store: store, opts: o}
}

// Mode returns domain.CredentialModeAppRegistered.
func (a *AppAuthenticator) Mode() domain.CredentialMode {
	return domain.CredentialModeAppRegistered
}

// Authenticate returns a session for profile, reusing cached tokens when
// they are still accepted and signing in interactively otherwise.
// An empty ClientID fails with domain.ErrAuthRequired before any network
// activity.
func (a *AppAuthenticator) Authenticate(ctx context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error) {
	clientID := strings.TrimSpace(profile.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: app-registered mode requires a client ID", domain.ErrAuthRequired)
	}
	portal := profile.NormalizedPortalURL()

	creds, err := a.store.Get(ctx, portal, clientID)
	switch {
	case err == nil && creds.IsAuthenticated():
		session, err := a.connect(ctx, creds)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrAuthInvalid) && !errors.Is(err, domain.ErrAuthExpired) {
			return nil, err
		}
		logger.Debug("app: cached token for %s rejected, signing in again", portal)
	case err == nil, errors.Is(err, domain.ErrNotFound):
		logger.Debug("app: no cached token for %s", portal)
	default:
		return nil, fmt.Errorf("load cached credentials: %w", err)
	}

	creds, err = a.Login(ctx, profile)
	if err != nil {
		return nil, err
	}
	return a.connect(ctx, creds)
}

// Login runs the browser sign-in and caches the issued tokens.
func (a *AppAuthenticator) Login(ctx context.Context, profile domain.ConnectionProfile) (*domain.Credentials, error) {
	clientID := strings.TrimSpace(profile.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: app-registered mode requires a client ID", domain.ErrAuthRequired)
	}
	portal := profile.NormalizedPortalURL()

	port, err := oauth.FindAvailablePort(a.opts.portStart, a.opts.portEnd)
	if err != nil {
		return nil, fmt.Errorf("oauth callback: %w", err)
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	server := oauth.NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("oauth callback: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Debug("app: stop callback server: %v", err)
		}
	}()

	cfg := arcgis.OAuthConfig(portal, clientID, server.RedirectURI())
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	_, _ = fmt.Fprintf(a.opts.out, "Sign in to %s in your browser.\nIf it does not open, visit:\n  %s\n", portal, authURL)
	if err := a.opts.openBrowser(authURL); err != nil {
		logger.Warn("could not open browser: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.opts.loginTimeout)
	defer cancel()
	code, err := server.WaitForCode(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: sign-in not completed: %w", domain.ErrAuthRequired, err)
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", domain.ErrAuthInvalid, err)
	}

	now := time.Now()
	creds := domain.Credentials{
		ID:        uuid.NewString(),
		PortalURL: portal,
		ClientID:  clientID,
		Username:  oauth.UsernameFromToken(tok),
		OAuth:     oauth.ToCredentials(tok),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := a.store.Get(ctx, portal, clientID); err == nil {
		creds.ID = existing.ID
		creds.CreatedAt = existing.CreatedAt
	}
	if err := a.store.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}
	return &creds, nil
}

// connect opens a session from cached credentials.
// A failed refresh is reported as domain.ErrAuthExpired.
func (a *AppAuthenticator) connect(ctx context.Context, creds *domain.Credentials) (driven.PortalSession, error) {
	cfg := arcgis.OAuthConfig(creds.PortalURL, creds.ClientID, "")
	ts := &storeTokenSource{
		ctx:   ctx,
		base:  cfg.TokenSource(ctx, oauth.FromCredentials(creds.OAuth)),
		store: a.store,
		creds: *creds,
		last:  creds.OAuth.AccessToken,
	}

	client := arcgis.NewClient(ctx, creds.PortalURL, ts, a.opts.clientOpts...)
	session, err := arcgis.Connect(ctx, client)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthExpired, err)
		}
		return nil, err
	}
	return session, nil
}

// storeTokenSource persists tokens refreshed by base.
type storeTokenSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	store driven.CredentialsStore

	mu    sync.Mutex
	creds domain.Credentials
	last  string
}

// Token implements oauth2.TokenSource.
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken

	s.creds.OAuth = oauth.ToCredentials(tok)
	s.creds.UpdatedAt = time.Now()
	if err := s.store.Save(s.ctx, s.creds); err != nil {
		logger.Warn("failed to cache refreshed token: %v", err)
	}
	return tok, nil
}
