// Package arcgis implements a client for the ArcGIS portal sharing REST API.
//
// It covers the calls the export workflow needs against ArcGIS Online and
// ArcGIS Enterprise portals:
//
//   - community/self to verify a token and resolve the user
//   - content/items/{id} to look up an item
//   - content/users/{user}/export and .../items/{id}/status to run an export job
//   - content/items/{id}/data to download the exported archive
//   - content/users/{user}/items/{id}/delete to remove the export item
//
// # Errors
//
// The REST API answers most failures with HTTP 200 and a JSON error envelope.
// The client turns both envelopes and non-200 responses into [*APIError].
// [Session] additionally wraps them with domain sentinels: unknown or
// inaccessible items become domain.ErrNotFound, token errors (498, 499)
// become domain.ErrAuthInvalid and HTTP 429 becomes domain.ErrRateLimited.
//
// # Authentication
//
// The client authenticates with any oauth2.TokenSource. [OAuthConfig] builds
// the configuration for an app registration (authorisation code with PKCE)
// and [NewPasswordTokenSource] wraps the generateToken endpoint for
// username and password credentials.
//
// # Rate limiting
//
// Requests are paced by a token bucket. A 429 response is returned to the
// caller as [*RateLimitError] and holds back further requests until its
// Retry-After has passed.
package arcgis
