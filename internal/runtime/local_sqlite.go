package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver: sqlite
)

const localTimeout = 5 * time.Second

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS preview_values (
  namespace TEXT NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (namespace, key)
);`

// OpenSQLite opens (creating if needed) the preview database at path.
func OpenSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	dsn := "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create preview schema: %w", err)
	}
	return db, nil
}

// SQLiteLocalStore persists preview values in SQLite so progress survives
// restarts of the CLI player. Values are scoped by namespace, usually
// "learner/course".
type SQLiteLocalStore struct {
	db        *sqlx.DB
	namespace string
}

func NewSQLiteLocalStore(db *sqlx.DB, namespace string) *SQLiteLocalStore {
	return &SQLiteLocalStore{db: db, namespace: namespace}
}

func (s *SQLiteLocalStore) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM preview_values WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preview value %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteLocalStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preview_values (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.namespace, key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set preview value %s: %w", key, err)
	}
	return nil
}

// PreviewEntry is one stored preview value.
type PreviewEntry struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// Entries lists the namespace's values ordered by key.
func (s *SQLiteLocalStore) Entries(ctx context.Context) ([]PreviewEntry, error) {
	var out []PreviewEntry
	if err := s.db.SelectContext(ctx, &out,
		`SELECT key, value, updated_at FROM preview_values WHERE namespace = ? ORDER BY key`,
		s.namespace,
	); err != nil {
		return nil, fmt.Errorf("list preview values: %w", err)
	}
	return out, nil
}
