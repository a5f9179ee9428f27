package domain

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// CredentialMode selects how a session authenticates to the portal.
type CredentialMode string

const (
	// CredentialModeAmbient uses credentials already present in the local
	// environment (environment variables, a desktop .env file).
	CredentialModeAmbient CredentialMode = "ambient"

	// CredentialModeAppRegistered uses an OAuth 2.0 application client ID.
	CredentialModeAppRegistered CredentialMode = "app-registered"
)

// ParseCredentialMode maps user input to a CredentialMode.
// Matching is case-insensitive; "pro" and "oauth" are accepted aliases.
func ParseCredentialMode(s string) (CredentialMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ambient", "pro", "arcgispro":
		return CredentialModeAmbient, nil
	case "app-registered", "app", "oauth":
		return CredentialModeAppRegistered, nil
	default:
		return "", fmt.Errorf("%w: unknown credential mode %q", ErrInvalidInput, s)
	}
}

// String returns the canonical name of the mode.
func (m CredentialMode) String() string {
	return string(m)
}

// IsValid reports whether m is one of the known modes.
func (m CredentialMode) IsValid() bool {
	return m == CredentialModeAmbient || m == CredentialModeAppRegistered
}

// ConnectionProfile describes one export workflow invocation.
// Values are treated as immutable; use WithMode to derive a variant.
type ConnectionProfile struct {
	// DesktopEnv is the local desktop GIS environment directory. Ambient mode
	// looks for a .env file with portal credentials there.
	DesktopEnv string `json:"desktop_env,omitempty"`
	// ItemID is the portal content item identifier of the feature layer.
	ItemID string `json:"item_id"`
	// PortalURL is the ArcGIS Online or Enterprise portal base URL.
	PortalURL string `json:"portal_url"`
	// CredentialMode selects ambient or app-registered authentication.
	CredentialMode CredentialMode `json:"credential_mode"`
	// ClientID is the OAuth application client ID. Only app-registered mode
	// reads it.
	ClientID string `json:"client_id,omitempty"`
}

// Validate checks the profile is complete enough to start a workflow.
// A missing ClientID is not a validation error; app-registered
// authentication reports it as ErrAuthRequired.
func (p ConnectionProfile) Validate() error {
	if strings.TrimSpace(p.ItemID) == "" {
		return fmt.Errorf("%w: item ID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.PortalURL) == "" {
		return fmt.Errorf("%w: portal URL is required", ErrInvalidInput)
	}
	u, err := url.Parse(p.PortalURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: portal URL %q must be an absolute http(s) URL", ErrInvalidInput, p.PortalURL)
	}
	if !p.CredentialMode.IsValid() {
		return fmt.Errorf("%w: unknown credential mode %q", ErrInvalidInput, p.CredentialMode)
	}
	return nil
}

// WithMode returns a copy of the profile using mode.
func (p ConnectionProfile) WithMode(mode CredentialMode) ConnectionProfile {
	p.CredentialMode = mode
	return p
}

// NormalizedPortalURL returns the portal URL without a trailing slash.
func (p ConnectionProfile) NormalizedPortalURL() string {
	return strings.TrimRight(strings.TrimSpace(p.PortalURL), "/")
}

// ProfileCounter counts constructed profiles for diagnostics.
// Nothing in the workflow reads the count.
type ProfileCounter struct {
	n atomic.Int64
}

// NewProfile validates p and counts it.
func (c *ProfileCounter) NewProfile(p ConnectionProfile) (ConnectionProfile, error) {
	if err := p.Validate(); err != nil {
		return ConnectionProfile{}, err
	}
	c.n.Add(1)
	return p, nil
}

// Count returns the number of profiles constructed so far.
func (c *ProfileCounter) Count() int64 {
	return c.n.Load()
}
