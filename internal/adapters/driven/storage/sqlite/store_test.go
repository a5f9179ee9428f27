package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testCredentials(portal, clientID string) domain.Credentials {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Credentials{
		ID:        "cred-" + clientID,
		PortalURL: portal,
		ClientID:  clientID,
		Username:  "gis_analyst",
		OAuth: &domain.OAuthCredentials{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       now.Add(time.Hour),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewStore_ErrorHandling(t *testing.T) {
	// Test with invalid path (should fail to create directory)
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "layerpull.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "nested", "path", "to", "db")

	store, err := NewStore(nestedDir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, nestedDir)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	for _, table := range []string{"credentials", "message_log"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CredentialsStore().Save(context.Background(), testCredentials("https://www.arcgis.com", "app-1")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.CredentialsStore().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== CredentialsStore Tests ====================

func TestCredentialsStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	creds := testCredentials("https://www.arcgis.com", "app-1")
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, creds.ID, got.ID)
	assert.Equal(t, "gis_analyst", got.Username)
	require.NotNil(t, got.OAuth)
	assert.Equal(t, "access", got.OAuth.AccessToken)
	assert.Equal(t, "refresh", got.OAuth.RefreshToken)
	assert.True(t, creds.OAuth.Expiry.Equal(got.OAuth.Expiry))
}

func TestCredentialsStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()

	_, err := store.Get(context.Background(), "https://www.arcgis.com", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialsStore_SaveUpdate(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	creds := testCredentials("https://www.arcgis.com", "app-1")
	require.NoError(t, store.Save(ctx, creds))

	creds.OAuth.AccessToken = "rotated"
	creds.UpdatedAt = creds.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.OAuth.AccessToken)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCredentialsStore_SameKeyDifferentID(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	first := testCredentials("https://www.arcgis.com", "app-1")
	require.NoError(t, store.Save(ctx, first))

	second := testCredentials("https://www.arcgis.com", "app-1")
	second.ID = "another-id"
	second.OAuth.AccessToken = "second"
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "existing row keeps its ID")
	assert.Equal(t, "second", got.OAuth.AccessToken)
}

func TestCredentialsStore_Save_InvalidInput(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()

	err := store.Save(context.Background(), domain.Credentials{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCredentialsStore_Save_AssignsID(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	creds := testCredentials("https://www.arcgis.com", "app-1")
	creds.ID = ""
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestCredentialsStore_NilOAuth(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	creds := testCredentials("https://www.arcgis.com", "app-1")
	creds.OAuth = nil
	require.NoError(t, store.Save(ctx, creds))

	got, err := store.Get(ctx, "https://www.arcgis.com", "app-1")
	require.NoError(t, err)
	assert.Nil(t, got.OAuth)
}

func TestCredentialsStore_ListAndDelete(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredentials("https://b.example.com", "app-1")))
	require.NoError(t, store.Save(ctx, testCredentials("https://a.example.com", "app-2")))
	require.NoError(t, store.Save(ctx, testCredentials("https://a.example.com", "app-1")))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "https://a.example.com", list[0].PortalURL)
	assert.Equal(t, "app-1", list[0].ClientID)
	assert.Equal(t, "app-2", list[1].ClientID)
	assert.Equal(t, "https://b.example.com", list[2].PortalURL)

	require.NoError(t, store.Delete(ctx, "https://a.example.com", "app-1"))
	_, err = store.Get(ctx, "https://a.example.com", "app-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting a missing entry is not an error
	require.NoError(t, store.Delete(ctx, "https://a.example.com", "app-1"))

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCredentialsStore_List_Empty(t *testing.T) {
	store := setupTestStore(t).CredentialsStore()

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ==================== MessageLog Tests ====================

func TestMessageLog_RecordAndRecent(t *testing.T) {
	log := setupTestStore(t).MessageLog()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(ctx, domain.LogEntry{
			Time:    base.Add(time.Duration(i) * time.Minute),
			Level:   domain.LogInfo,
			RunID:   "run-1",
			Message: fmt.Sprintf("message %d", i),
		}))
	}

	recent, err := log.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "message 4", recent[0].Message)
	assert.Equal(t, "message 3", recent[1].Message)
	assert.Equal(t, domain.LogInfo, recent[0].Level)
	assert.Equal(t, "run-1", recent[0].RunID)
	assert.True(t, base.Add(4*time.Minute).Equal(recent[0].Time))

	all, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMessageLog_Levels(t *testing.T) {
	log := setupTestStore(t).MessageLog()
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, domain.LogEntry{Time: time.Now(), Level: domain.LogCritical, Message: "auth failed"}))

	recent, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.LogCritical, recent[0].Level)
	assert.Empty(t, recent[0].RunID)
}
