package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"
)

// dialect holds the statements that differ between drivers
type dialect struct {
	create string
	load   string
	save   string
}

var (
	sqliteDialect = dialect{
		create: `CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		load: `SELECT value FROM kv WHERE key = ?`,
		save: `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	}

	postgresDialect = dialect{
		create: `create table if not exists kv (
			key text primary key,
			value bytea not null,
			updated_at timestamptz not null default now()
		)`,
		load: `select value from kv where key = $1`,
		save: `insert into kv (key, value, updated_at) values ($1, $2, now())
			on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at`,
	}
)

// SQLSlot stores the value as one row of a kv table
type SQLSlot struct {
	db      *sql.DB
	key     string
	dialect dialect
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// returns the slot named key inside it.
func OpenSQLite(ctx context.Context, path, key string) (*SQLSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway
	db.SetMaxOpenConns(1)

	return newSQLSlot(ctx, db, key, sqliteDialect)
}

// OpenPostgres connects to dsn and returns the slot named key
func OpenPostgres(ctx context.Context, dsn, key string) (*SQLSlot, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return newSQLSlot(ctx, db, key, postgresDialect)
}

func newSQLSlot(ctx context.Context, db *sql.DB, key string, d dialect) (*SQLSlot, error) {
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLSlot{db: db, key: key, dialect: d}, nil
}

func (s *SQLSlot) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.load, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return data, nil
}

func (s *SQLSlot) Save(ctx context.Context, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.save, s.key, data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLSlot) Close() error {
	return s.db.Close()
}
