package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/layerpull/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// dbFileName is the database file inside the data directory.
const dbFileName = "layerpull.db"

// Store is a SQLite-based storage that provides access to the store
// interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.layerpull/data/layerpull.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".layerpull", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CredentialsStore returns a CredentialsStore interface backed by this store.
func (s *Store) CredentialsStore() driven.CredentialsStore {
	return &credentialsStore{store: s}
}

// MessageLog returns a message log backed by this store. It serves both as
// a diagnostic sink and as the reader for recorded messages.
func (s *Store) MessageLog() *MessageLog {
	return &MessageLog{store: s}
}

// migrate runs all pending migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// =============================================================================
// CredentialsStore Implementation
// =============================================================================

type credentialsStore struct {
	store *Store
}

var _ driven.CredentialsStore = (*credentialsStore)(nil)

// Save stores or updates credentials. Entries are unique per portal URL and
// client ID; an empty ID is assigned a new UUID.
func (s *credentialsStore) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.PortalURL == "" || creds.ClientID == "" {
		return fmt.Errorf("%w: credentials need a portal URL and client ID", domain.ErrInvalidInput)
	}
	if creds.ID == "" {
		creds.ID = uuid.NewString()
	}

	oauthJSON, err := json.Marshal(creds.OAuth)
	if err != nil {
		return fmt.Errorf("marshalling oauth credentials: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO credentials
			(id, portal_url, client_id, username, oauth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portal_url, client_id) DO UPDATE SET
			username = excluded.username,
			oauth = excluded.oauth,
			updated_at = excluded.updated_at
	`, creds.ID, creds.PortalURL, creds.ClientID, creds.Username,
		string(oauthJSON), creds.CreatedAt, creds.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Get retrieves the credentials for a portal and client ID.
func (s *credentialsStore) Get(ctx context.Context, portalURL, clientID string) (*domain.Credentials, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, portal_url, client_id, username, oauth, created_at, updated_at
		FROM credentials WHERE portal_url = ? AND client_id = ?
	`, portalURL, clientID)

	return scanCredentials(row)
}

// List returns all cached credentials ordered by portal URL and client ID.
func (s *credentialsStore) List(ctx context.Context) ([]domain.Credentials, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, portal_url, client_id, username, oauth, created_at, updated_at
		FROM credentials ORDER BY portal_url, client_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var result []domain.Credentials
	for rows.Next() {
		creds, err := scanCredentials(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *creds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return result, nil
}

// Delete removes the credentials for a portal and client ID.
func (s *credentialsStore) Delete(ctx context.Context, portalURL, clientID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE portal_url = ? AND client_id = ?", portalURL, clientID)
	if err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCredentials scans a single credentials row.
func scanCredentials(row rowScanner) (*domain.Credentials, error) {
	var creds domain.Credentials
	var oauthJSON sql.NullString

	if err := row.Scan(&creds.ID, &creds.PortalURL, &creds.ClientID, &creds.Username,
		&oauthJSON, &creds.CreatedAt, &creds.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning credentials: %w", err)
	}

	if oauthJSON.Valid && oauthJSON.String != jsonNull {
		var oauth domain.OAuthCredentials
		if err := json.Unmarshal([]byte(oauthJSON.String), &oauth); err != nil {
			return nil, fmt.Errorf("unmarshalling oauth credentials: %w", err)
		}
		creds.OAuth = &oauth
	}

	return &creds, nil
}

// =============================================================================
// MessageLog Implementation
// =============================================================================

// MessageLog stores diagnostic messages in the message_log table.
type MessageLog struct {
	store *Store
}

var (
	_ driven.DiagnosticSink = (*MessageLog)(nil)
	_ driven.MessageLog     = (*MessageLog)(nil)
)

// Record inserts an entry.
func (l *MessageLog) Record(ctx context.Context, entry domain.LogEntry) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO message_log (recorded_at, level, run_id, message)
		VALUES (?, ?, ?, ?)
	`, entry.Time, string(entry.Level), entry.RunID, entry.Message)
	if err != nil {
		return fmt.Errorf("recording message: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
// A non-positive limit returns all entries.
func (l *MessageLog) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	query := `SELECT recorded_at, level, run_id, message FROM message_log ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var result []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var level string
		if err := rows.Scan(&e.Time, &level, &e.RunID, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		e.Level = domain.LogLevel(level)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return result, nil
}
