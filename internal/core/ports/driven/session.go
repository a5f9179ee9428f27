package driven

import (
	"context"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// PortalSession is an authenticated connection to an ArcGIS portal.
// A session is owned by one workflow invocation and closed when it ends.
type PortalSession interface {
	// PortalURL returns the normalised portal base URL.
	PortalURL() string

	// Username returns the authenticated portal account.
	Username() string

	// Item looks up a content item by ID.
	// Returns an error wrapping domain.ErrNotFound if the item does not
	// exist or is not accessible to the session's user.
	Item(ctx context.Context, itemID string) (*domain.Item, error)

	// Export starts a server-side export of itemID into a new item named title.
	Export(ctx context.Context, itemID, title string, format domain.ExportFormat) (*domain.ExportJob, error)

	// ExportStatus polls the state of a running export job once.
	ExportStatus(ctx context.Context, job domain.ExportJob) (domain.ExportStatus, error)

	// Download writes the data of itemID to destPath.
	// The file only appears at destPath once fully written; on error nothing
	// is left behind. Returns the number of bytes written.
	Download(ctx context.Context, itemID, destPath string) (int64, error)

	// DeleteItem removes an item owned by the session's user.
	DeleteItem(ctx context.Context, itemID string) error

	// Close releases the session. Further calls fail with domain.ErrSessionClosed.
	Close() error
}

// Authenticator establishes sessions for one credential mode.
type Authenticator interface {
	// Mode returns the credential mode this authenticator serves.
	Mode() domain.CredentialMode

	// Authenticate returns a verified session for the profile.
	Authenticate(ctx context.Context, profile domain.ConnectionProfile) (PortalSession, error)
}

// AuthenticatorFactory selects the Authenticator for a credential mode.
type AuthenticatorFactory interface {
	// ForMode returns the authenticator for mode or an error wrapping
	// domain.ErrInvalidInput if none is registered.
	ForMode(mode domain.CredentialMode) (Authenticator, error)
}

// InteractiveAuthenticator runs an interactive sign-in for a profile and
// caches the resulting credentials.
type InteractiveAuthenticator interface {
	Login(ctx context.Context, profile domain.ConnectionProfile) (*domain.Credentials, error)
}
