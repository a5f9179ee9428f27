package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

func testCredentials(portal, clientID string) domain.Credentials {
	return domain.Credentials{
		ID:        "cred-" + clientID,
		PortalURL: portal,
		ClientID:  clientID,
		Username:  "gis_analyst",
		OAuth: &domain.OAuthCredentials{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		},
	}
}

func TestCredentialsStore_SaveAndGet(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredentials("https://www.arcgis.com", "app-1")))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, "gis_analyst", got.Username)
	assert.Equal(t, "access", got.OAuth.AccessToken)
}

func TestCredentialsStore_Get_NotFound(t *testing.T) {
	store := NewCredentialsStore()

	_, err := store.Get(context.Background(), "https://www.arcgis.com", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialsStore_KeyedByPortalAndClient(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredentials("https://a.example.com", "app-1")))
	require.NoError(t, store.Save(ctx, testCredentials("https://b.example.com", "app-1")))
	require.NoError(t, store.Save(ctx, testCredentials("https://a.example.com", "app-2")))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "https://a.example.com", list[0].PortalURL)
	assert.Equal(t, "app-1", list[0].ClientID)
	assert.Equal(t, "app-2", list[1].ClientID)
	assert.Equal(t, "https://b.example.com", list[2].PortalURL)
}

func TestCredentialsStore_Update(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()

	creds := testCredentials("https://www.arcgis.com", "app-1")
	require.NoError(t, store.Save(ctx, creds))

	creds.OAuth.AccessToken = "rotated"
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.OAuth.AccessToken)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCredentialsStore_ReturnsCopies(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testCredentials("https://www.arcgis.com", "app-1")))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	got.OAuth.AccessToken = "mutated"

	again, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, "access", again.OAuth.AccessToken)
}

func TestCredentialsStore_Delete(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testCredentials("https://www.arcgis.com", "app-1")))

	require.NoError(t, store.Delete(ctx, "https://www.arcgis.com", "app-1"))
	_, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing entry is not an error
	require.NoError(t, store.Delete(ctx, "https://www.arcgis.com", "app-1"))
}

func TestCredentialsStore_Concurrent(t *testing.T) {
	store := NewCredentialsStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, testCredentials("https://www.arcgis.com", "app-1"))
			_, _ = store.Get(ctx, "https://www.arcgis.com", "app-1")
			_, _ = store.List(ctx)
		}()
	}
	wg.Wait()

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
