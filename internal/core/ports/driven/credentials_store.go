package driven

import (
	"context"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// CredentialsStore persists OAuth tokens of app-registered sessions.
// Entries are keyed by portal URL and client ID.
type CredentialsStore interface {
	// Save stores credentials. Creates if new, updates if exists.
	Save(ctx context.Context, creds domain.Credentials) error

	// Get retrieves the credentials for a portal and client ID.
	// Returns domain.ErrNotFound if none are cached.
	Get(ctx context.Context, portalURL, clientID string) (*domain.Credentials, error)

	// List returns all cached credentials.
	List(ctx context.Context) ([]domain.Credentials, error)

	// Delete removes the credentials for a portal and client ID.
	// Deleting a missing entry is not an error.
	Delete(ctx context.Context, portalURL, clientID string) error
}
