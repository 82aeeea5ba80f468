package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"grantdraft/internal/safeio"
)

// StorageKey names the single persisted entry.
const StorageKey = "gemini_api_key"

// Store persists the user-entered key. Load returns an empty credential and
// no error when nothing has been saved.
type Store interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, c Credential) error
}

// FileStore keeps the key in a small JSON object on local disk.
type FileStore struct {
	fs   *safeio.SafeFS
	name string
	mu   sync.Mutex
}

// NewFileStore binds the store to path; its directory becomes the safeio root.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("credential: file path is required")
	}
	fsys, err := safeio.NewSafeFS(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("credential: open store dir: %w", err)
	}
	return &FileStore{fs: fsys, name: filepath.Base(path)}, nil
}

func (s *FileStore) Load(_ context.Context) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.fs.SafeReadFile(s.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("credential: read store: %w", err)
	}
	entries := map[string]string{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return "", fmt.Errorf("credential: decode store: %w", err)
	}
	return Credential(entries[StorageKey]), nil
}

func (s *FileStore) Save(_ context.Context, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(map[string]string{StorageKey: c.Secret()}, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.SafeWriteFile(s.name, raw, 0o600); err != nil {
		return fmt.Errorf("credential: write store: %w", err)
	}
	return nil
}

// PostgresStore keeps the key as one row of a key/value settings table.
type PostgresStore struct {
	db *sql.DB

	schemaMu    sync.Mutex
	schemaReady bool
}

const (
	pgSchema = `CREATE TABLE IF NOT EXISTS grantdraft_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	pgSelect = `SELECT value FROM grantdraft_settings WHERE key = $1`
	pgUpsert = `INSERT INTO grantdraft_settings (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// NewPostgres opens the pgx driver and checks connectivity.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an already opened database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ensureSchema creates the table once; a failed attempt is retried on the
// next call.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Credential, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", fmt.Errorf("credential: ensure schema: %w", err)
	}
	var value string
	err := s.db.QueryRowContext(ctx, pgSelect, StorageKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: load: %w", err)
	}
	return Credential(value), nil
}

func (s *PostgresStore) Save(ctx context.Context, c Credential) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("credential: ensure schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, pgUpsert, StorageKey, c.Secret()); err != nil {
		return fmt.Errorf("credential: save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewStore picks Postgres when a DSN is configured and the local file
// otherwise.
func NewStore(ctx context.Context, dsn, filePath string) (Store, error) {
	if strings.TrimSpace(dsn) != "" {
		return NewPostgres(ctx, dsn)
	}
	return NewFileStore(filePath)
}
