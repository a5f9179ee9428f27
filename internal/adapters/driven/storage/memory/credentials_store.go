package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// Ensure CredentialsStore implements the interface.
var _ driven.CredentialsStore = (*CredentialsStore)(nil)

type credentialsKey struct {
	portalURL string
	clientID  string
}

// CredentialsStore is an in-memory implementation of driven.CredentialsStore.
type CredentialsStore struct {
	mu    sync.RWMutex
	creds map[credentialsKey]domain.Credentials
}

// NewCredentialsStore creates a new in-memory credentials store.
func NewCredentialsStore() *CredentialsStore {
	return &CredentialsStore{
		creds: make(map[credentialsKey]domain.Credentials),
	}
}

// Save stores or updates credentials.
func (s *CredentialsStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[credentialsKey{creds.PortalURL, creds.ClientID}] = cloneCredentials(creds)
	return nil
}

// Get retrieves the credentials for a portal and client ID.
func (s *CredentialsStore) Get(_ context.Context, portalURL, clientID string) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.creds[credentialsKey{portalURL, clientID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneCredentials(creds)
	return &c, nil
}

// List returns all credentials ordered by portal URL and client ID.
func (s *CredentialsStore) List(_ context.Context) ([]domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Credentials, 0, len(s.creds))
	for _, c := range s.creds {
		result = append(result, cloneCredentials(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PortalURL != result[j].PortalURL {
			return result[i].PortalURL < result[j].PortalURL
		}
		return result[i].ClientID < result[j].ClientID
	})
	return result, nil
}

// Delete removes the credentials for a portal and client ID.
func (s *CredentialsStore) Delete(_ context.Context, portalURL, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, credentialsKey{portalURL, clientID})
	return nil
}

// cloneCredentials copies the OAuth pointer so callers cannot mutate stored state.
func cloneCredentials(c domain.Credentials) domain.Credentials {
	if c.OAuth != nil {
		oauth := *c.OAuth
		c.OAuth = &oauth
	}
	return c
}
