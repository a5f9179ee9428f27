package domain

import "time"

// Credentials caches the OAuth tokens of an app-registered session.
// One entry exists per (PortalURL, ClientID) pair.
type Credentials struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// PortalURL is the normalised portal base URL the tokens were issued by.
	PortalURL string `json:"portal_url"`
	// ClientID is the OAuth application the tokens were issued to.
	ClientID string `json:"client_id"`
	// Username is the portal account the tokens belong to.
	Username string `json:"username,omitempty"`

	// OAuth holds the token pair.
	OAuth *OAuthCredentials `json:"oauth,omitempty"`

	// CreatedAt is when the credentials were created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the credentials were last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// OAuthCredentials stores OAuth tokens for a specific user account.
type OAuthCredentials struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`
}

// IsExpired returns true if the OAuth access token has expired.
func (c *OAuthCredentials) IsExpired() bool {
	if c.Expiry.IsZero() {
		return false
	}
	return time.Now().After(c.Expiry)
}

// IsAuthenticated returns true if the credentials can still produce a token,
// either directly or through a refresh.
func (c *Credentials) IsAuthenticated() bool {
	if c == nil || c.OAuth == nil {
		return false
	}
	if c.OAuth.RefreshToken != "" {
		return true
	}
	return c.OAuth.AccessToken != "" && !c.OAuth.IsExpired()
}

// NeedsRefresh returns true if the access token expired and a refresh token exists.
func (c *Credentials) NeedsRefresh() bool {
	if c.OAuth == nil {
		return false
	}
	return c.OAuth.IsExpired() && c.OAuth.RefreshToken != ""
}
