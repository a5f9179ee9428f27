package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultTokenExpiration is requested from generateToken, in minutes.
	DefaultTokenExpiration = 60

	// DefaultReferer is sent as the client identity for generateToken.
	DefaultReferer = "layerpull"
)

// Endpoint returns the OAuth 2.0 endpoints of a portal.
// ArcGIS expects the client ID as a form parameter rather than basic auth.
func Endpoint(portalURL string) oauth2.Endpoint {
	rest := RestURL(portalURL)
	return oauth2.Endpoint{
		AuthURL:   rest + "/oauth2/authorize",
		TokenURL:  rest + "/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// OAuthConfig returns the OAuth 2.0 configuration for an app registration.
// Public clients have no secret; PKCE protects the code exchange.
func OAuthConfig(portalURL, clientID, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		Endpoint:    Endpoint(portalURL),
		RedirectURL: redirectURL,
	}
}

// NewPasswordTokenSource returns a token source backed by the portal's
// generateToken endpoint. Tokens are cached until shortly before expiry.
func NewPasswordTokenSource(ctx context.Context, portalURL, username, password string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx:        ctx,
		tokenURL:   RestURL(portalURL) + "/generateToken",
		username:   username,
		password:   password,
		referer:    DefaultReferer,
		expiration: DefaultTokenExpiration,
	})
}

type passwordTokenSource struct {
	ctx        context.Context
	tokenURL   string
	username   string
	password   string
	referer    string
	expiration int
}

type generateTokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
	SSL     bool   `json:"ssl"`
}

// Token implements oauth2.TokenSource.
func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"username":   {s.username},
		"password":   {s.password},
		"client":     {"referer"},
		"referer":    {s.referer},
		"expiration": {strconv.Itoa(s.expiration)},
		"f":          {"json"},
	}

	ctx, cancel := context.WithTimeout(s.ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := contextClient(s.ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if err := decodeError(resp.StatusCode, s.tokenURL, body); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	var tr generateTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.Token == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{AccessToken: tr.Token, TokenType: "Bearer"}
	if tr.Expires > 0 {
		tok.Expiry = time.UnixMilli(tr.Expires)
	}
	return tok, nil
}

// contextClient returns the *http.Client stored in ctx under
// oauth2.HTTPClient, falling back to a client with DefaultTimeout.
func contextClient(ctx context.Context) *http.Client {
	if ctx != nil {
		if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil {
			return hc
		}
	}
	return &http.Client{Timeout: DefaultTimeout}
}
