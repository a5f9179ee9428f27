package oauth

import (
	"golang.org/x/oauth2"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// UsernameFromToken returns the portal username ArcGIS includes in token
// responses, or "" if absent.
func UsernameFromToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	if u, ok := tok.Extra("username").(string); ok {
		return u
	}
	return ""
}

// ToCredentials converts an oauth2 token to cached OAuth credentials.
func ToCredentials(tok *oauth2.Token) *domain.OAuthCredentials {
	if tok == nil {
		return nil
	}
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &domain.OAuthCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tokenType,
		Expiry:       tok.Expiry,
	}
}

// FromCredentials converts cached OAuth credentials to an oauth2 token.
func FromCredentials(c *domain.OAuthCredentials) *oauth2.Token {
	if c == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}
