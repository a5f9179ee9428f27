package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
)

// Ensure CredentialsService implements the interface.
var _ driving.CredentialsManager = (*CredentialsService)(nil)

// CredentialsService manages cached app-registered credentials.
type CredentialsService struct {
	login driven.InteractiveAuthenticator
	store driven.CredentialsStore
	rec   recorder
}

// NewCredentialsService creates a new credentials service.
func NewCredentialsService(
	login driven.InteractiveAuthenticator,
	store driven.CredentialsStore,
	sink driven.DiagnosticSink,
) *CredentialsService {
	return &CredentialsService{
		login: login,
		store: store,
		rec:   newRecorder(sink),
	}
}

// Login runs the interactive sign-in for profile and caches the tokens.
func (s *CredentialsService) Login(ctx context.Context, profile domain.ConnectionProfile) (*domain.Credentials, error) {
	if s.login == nil {
		return nil, fmt.Errorf("%w: interactive sign-in not configured", domain.ErrAuthRequired)
	}
	if strings.TrimSpace(profile.ClientID) == "" {
		return nil, fmt.Errorf("%w: app-registered sign-in needs a client ID", domain.ErrAuthRequired)
	}
	if profile.NormalizedPortalURL() == "" {
		return nil, fmt.Errorf("%w: portal URL is required", domain.ErrInvalidInput)
	}

	creds, err := s.login.Login(ctx, profile.WithMode(domain.CredentialModeAppRegistered))
	if err != nil {
		s.rec.critical(ctx, "Sign-in to %s failed: %v", profile.NormalizedPortalURL(), err)
		return nil, err
	}

	s.rec.info(ctx, "Signed in to %s as %s", creds.PortalURL, creds.Username)
	return creds, nil
}

// Logout removes cached tokens for a portal and client ID.
func (s *CredentialsService) Logout(ctx context.Context, portalURL, clientID string) error {
	if s.store == nil {
		return fmt.Errorf("%w: credentials store not configured", domain.ErrInvalidInput)
	}
	portalURL = strings.TrimRight(strings.TrimSpace(portalURL), "/")
	if portalURL == "" || clientID == "" {
		return fmt.Errorf("%w: portal URL and client ID are required", domain.ErrInvalidInput)
	}

	if _, err := s.store.Get(ctx, portalURL, clientID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, portalURL, clientID); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}

	s.rec.info(ctx, "Removed cached credentials for %s (client %s)", portalURL, clientID)
	return nil
}

// List returns cached credentials.
func (s *CredentialsService) List(ctx context.Context) ([]domain.Credentials, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.List(ctx)
}
