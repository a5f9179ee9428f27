// Package auth provides the portal authenticators for each credential mode.
package auth

import (
	"fmt"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.AuthenticatorFactory = (*Factory)(nil)

// Factory selects the authenticator for a credential mode.
type Factory struct {
	authenticators map[domain.CredentialMode]driven.Authenticator
}

// NewFactory creates a factory serving the given authenticators.
// A later authenticator for the same mode replaces an earlier one.
func NewFactory(authenticators ...driven.Authenticator) *Factory {
	f := &Factory{authenticators: make(map[domain.CredentialMode]driven.Authenticator)}
	for _, a := range authenticators {
		if a != nil {
			f.authenticators[a.Mode()] = a
		}
	}
	return f
}

// NewDefaultFactory creates a factory with ambient and app-registered
// authenticators sharing opts.
func NewDefaultFactory(store driven.CredentialsStore, opts ...Option) *Factory {
	return NewFactory(
		NewAmbientAuthenticator(opts...),
		NewAppAuthenticator(store, opts...),
	)
}

// ForMode returns the authenticator registered for mode.
func (f *Factory) ForMode(mode domain.CredentialMode) (driven.Authenticator, error) {
	a, ok := f.authenticators[mode]
	if !ok {
		return nil, fmt.Errorf("%w: no authenticator for credential mode %q", domain.ErrInvalidInput, mode)
	}
	return a, nil
}
