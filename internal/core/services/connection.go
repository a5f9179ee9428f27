package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
)

// Ensure ConnectionService implements the interface.
var _ driving.ConnectionEstablisher = (*ConnectionService)(nil)

// ConnectionService establishes authenticated portal sessions by
// dispatching on the profile's credential mode.
type ConnectionService struct {
	factory driven.AuthenticatorFactory
	rec     recorder
	out     io.Writer
}

// NewConnectionService creates a connection service. Status lines are
// written to out (stdout when nil); entries are recorded to sink.
func NewConnectionService(factory driven.AuthenticatorFactory, sink driven.DiagnosticSink, out io.Writer) *ConnectionService {
	if out == nil {
		out = os.Stdout
	}
	return &ConnectionService{
		factory: factory,
		rec:     newRecorder(sink),
		out:     out,
	}
}

// Establish authenticates according to profile.CredentialMode.
func (s *ConnectionService) Establish(ctx context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error) {
	portal := profile.NormalizedPortalURL()

	session, err := s.authenticate(ctx, profile)
	if err != nil {
		fmt.Fprintf(s.out, "Connection to %s failed: %v\n", portal, err)
		s.rec.critical(ctx, "Connection to %s failed (%s mode): %v", portal, profile.CredentialMode, err)
		return nil, err
	}

	fmt.Fprintf(s.out, "Connected to %s as %s\n", session.PortalURL(), session.Username())
	s.rec.info(ctx, "Connected to %s as %s (%s mode)", session.PortalURL(), session.Username(), profile.CredentialMode)
	return session, nil
}

func (s *ConnectionService) authenticate(ctx context.Context, profile domain.ConnectionProfile) (driven.PortalSession, error) {
	if s.factory == nil {
		return nil, fmt.Errorf("%w: no authenticators configured", domain.ErrAuthRequired)
	}
	if portal := profile.NormalizedPortalURL(); portal == "" {
		return nil, fmt.Errorf("%w: portal URL is required", domain.ErrInvalidInput)
	}

	authn, err := s.factory.ForMode(profile.CredentialMode)
	if err != nil {
		return nil, err
	}

	session, err := authn.Authenticate(ctx, profile)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s authenticator returned no session", domain.ErrAuthInvalid, profile.CredentialMode)
	}
	return session, nil
}
