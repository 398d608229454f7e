package universe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the latest universe snapshot per source in SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite universe store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS universe_snapshots (
		source     TEXT PRIMARY KEY,
		symbols    TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, source string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT symbols, fetched_at FROM universe_snapshots WHERE source = ?`, source,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := &Snapshot{Source: source, FetchedAt: time.Unix(fetchedAt, 0)}
	if err := json.Unmarshal([]byte(raw), &snap.Symbols); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(snap.Symbols)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO universe_snapshots (source, symbols, fetched_at)
		VALUES (?,?,?)
		ON CONFLICT(source) DO UPDATE SET symbols = excluded.symbols, fetched_at = excluded.fetched_at`,
		snap.Source, string(raw), snap.FetchedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM universe_snapshots WHERE source = ?`, source)
	return err
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite universe store")
	return s.db.Close()
}
