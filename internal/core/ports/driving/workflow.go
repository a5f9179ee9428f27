package driving

import (
	"context"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// ConnectionEstablisher produces authenticated portal sessions.
type ConnectionEstablisher interface {
	// Establish authenticates according to profile.CredentialMode.
	// On success the session is non-nil; on failure the error is non-nil.
	Establish(ctx context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error)
}

// LayerExporter exports a content item and downloads the archive.
type LayerExporter interface {
	// ExportAndDownload exports profile.ItemID through session and writes
	// the archive to {outputDir}/{title}.zip.
	ExportAndDownload(
		ctx context.Context,
		session driven.PortalSession,
		profile domain.ConnectionProfile,
		outputDir string,
	) (*domain.ExportResult, error)
}

// LayerWorkflow runs the complete export-and-load workflow.
type LayerWorkflow interface {
	// Run connects with mode (the profile's own mode when empty), exports
	// and downloads the item, extracts it into {outputDir}/{title}/ and
	// returns the loaded tables keyed by file name.
	Run(
		ctx context.Context,
		profile domain.ConnectionProfile,
		mode domain.CredentialMode,
		outputDir string,
	) (domain.TableSet, error)
}

// CredentialsManager manages cached app-registered credentials.
type CredentialsManager interface {
	// Login runs the app-registered flow for profile and caches the tokens.
	Login(ctx context.Context, profile domain.ConnectionProfile) (*domain.Credentials, error)

	// Logout removes cached tokens for a portal and client ID.
	Logout(ctx context.Context, portalURL, clientID string) error

	// List returns cached credentials.
	List(ctx context.Context) ([]domain.Credentials, error)
}
