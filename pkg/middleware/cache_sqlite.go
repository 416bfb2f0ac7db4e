package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

const (
	cacheBusyTimeout         = 5 * time.Second
	cacheMaintenanceInterval = 5 * time.Minute
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	key        TEXT PRIMARY KEY,
	response   BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_response_cache_expires ON response_cache (expires_at);
`

// SQLiteCacheStore is a CacheStore backed by a SQLite database, so
// cached responses survive process restarts. The database runs in WAL
// mode with a single connection; a maintenance goroutine prunes expired
// rows and checkpoints the log until Close is called.
type SQLiteCacheStore struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	deleteStmt *sql.Stmt

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewSQLiteCacheStore opens (creating if necessary) the cache database
// at path.
func NewSQLiteCacheStore(path string, logger *slog.Logger) (*SQLiteCacheStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, cacheBusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids lock
	// contention errors under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	s := &SQLiteCacheStore{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	go s.maintenanceLoop()
	return s, nil
}

func (s *SQLiteCacheStore) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(
		`SELECT response, expires_at FROM response_cache WHERE key = ?`); err != nil {
		return fmt.Errorf("preparing get statement: %w", err)
	}
	if s.setStmt, err = s.db.Prepare(
		`INSERT OR REPLACE INTO response_cache (key, response, expires_at) VALUES (?, ?, ?)`); err != nil {
		return fmt.Errorf("preparing set statement: %w", err)
	}
	if s.deleteStmt, err = s.db.Prepare(
		`DELETE FROM response_cache WHERE key = ?`); err != nil {
		return fmt.Errorf("preparing delete statement: %w", err)
	}
	return nil
}

// Get implements CacheStore. Rows past their expiry are deleted on
// read and reported as misses.
func (s *SQLiteCacheStore) Get(ctx context.Context, key string) (*ir.ChatResponse, bool, error) {
	var (
		payload   []byte
		expiresAt int64
	)
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	if time.Now().UnixMilli() > expiresAt {
		if _, err := s.deleteStmt.ExecContext(ctx, key); err != nil {
			s.logger.Warn("deleting expired cache entry", "error", err)
		}
		return nil, false, nil
	}
	var resp ir.ChatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return &resp, true, nil
}

// Set implements CacheStore.
func (s *SQLiteCacheStore) Set(ctx context.Context, key string, resp *ir.ChatResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	expiresAt := time.Now().Add(ttl).UnixMilli()
	if _, err := s.setStmt.ExecContext(ctx, key, payload, expiresAt); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Close stops the maintenance goroutine, checkpoints the WAL into the
// main database file, and closes the connection. It is safe to call
// more than once.
func (s *SQLiteCacheStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh

		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("final cache checkpoint failed", "error", err)
		}
		s.getStmt.Close()
		s.setStmt.Close()
		s.deleteStmt.Close()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *SQLiteCacheStore) maintenanceLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(cacheMaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.maintain()
		case <-s.stopCh:
			return
		}
	}
}

// maintain prunes expired rows and moves WAL pages into the main
// database file so the log does not grow without bound.
func (s *SQLiteCacheStore) maintain() {
	if _, err := s.db.Exec(
		`DELETE FROM response_cache WHERE expires_at < ?`, time.Now().UnixMilli()); err != nil {
		s.logger.Warn("pruning expired cache entries", "error", err)
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		s.logger.Warn("cache checkpoint failed", "error", err)
	}
}
