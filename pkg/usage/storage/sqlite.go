package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

// SQLiteConfig configures the SQLite ledger store.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// MaxOpenConns and MaxIdleConns size the connection pool.
	MaxOpenConns int
	MaxIdleConns int

	// BusyTimeout is how long a statement waits on a locked database
	// before failing.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the SQLite store defaults.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         "data/usage.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLite is a usage.Store backed by a SQLite database in WAL mode, so
// the ledger survives restarts and readers do not block the writer.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) the ledger database at
// cfg.Path and applies the schema.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite ledger path is required")
	}
	def := DefaultSQLiteConfig()
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = def.MaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = def.BusyTimeout
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	if _, err := db.Exec(insertSchemaVersion, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording schema version: %w", err)
	}
	return &SQLite{db: db}, nil
}

const recordColumns = `id, request_id, timestamp, frontend, backend, model,
	latency_ms, streamed, prompt_tokens, completion_tokens, total_tokens,
	cost, finish_reason, warnings, error_code, attempted`

// Insert implements usage.Store.
func (s *SQLite) Insert(ctx context.Context, rec *usage.Record) error {
	if rec == nil {
		return fmt.Errorf("usage record is nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("usage record id is empty")
	}

	attempted := ""
	if len(rec.Attempted) > 0 {
		raw, err := json.Marshal(rec.Attempted)
		if err != nil {
			return fmt.Errorf("encoding attempted backends: %w", err)
		}
		attempted = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RequestID,
		rec.Timestamp.UTC(),
		rec.Frontend,
		rec.Backend,
		rec.Model,
		rec.Latency.Milliseconds(),
		rec.Streamed,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.Cost,
		rec.FinishReason,
		rec.Warnings,
		rec.ErrorCode,
		attempted,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// Query implements usage.Store.
func (s *SQLite) Query(ctx context.Context, q *usage.Query) ([]*usage.Record, error) {
	where, args := buildWhere(q)

	limit := usage.DefaultQueryLimit
	offset := 0
	if q != nil {
		if q.Limit > 0 {
			limit = q.Limit
		}
		if q.Offset > 0 {
			offset = q.Offset
		}
	}

	query := `SELECT ` + recordColumns + ` FROM usage_records` + where +
		` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage records: %w", err)
	}
	defer rows.Close()

	var out []*usage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage records: %w", err)
	}
	return out, nil
}

// Count implements usage.Store.
func (s *SQLite) Count(ctx context.Context, q *usage.Query) (int64, error) {
	where, args := buildWhere(q)
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_records`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting usage records: %w", err)
	}
	return n, nil
}

// Summarize implements usage.Store.
func (s *SQLite) Summarize(ctx context.Context, q *usage.Query) (*usage.Summary, error) {
	where, args := buildWhere(q)

	sum := &usage.Summary{ByBackend: make(map[string]*usage.BackendTotals)}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN error_code != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(cost), 0)
		FROM usage_records`+where, args...).Scan(
		&sum.Requests,
		&sum.Failures,
		&sum.PromptTokens,
		&sum.CompletionTokens,
		&sum.TotalTokens,
		&sum.Cost,
	)
	if err != nil {
		return nil, fmt.Errorf("summarizing usage records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT backend, COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost), 0)
		FROM usage_records`+where+`
		GROUP BY backend`, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing usage by backend: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var backend string
		totals := &usage.BackendTotals{}
		if err := rows.Scan(&backend, &totals.Requests, &totals.TotalTokens, &totals.Cost); err != nil {
			return nil, fmt.Errorf("scanning backend totals: %w", err)
		}
		sum.ByBackend[backend] = totals
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading backend totals: %w", err)
	}
	return sum, nil
}

// Delete implements usage.Store.
func (s *SQLite) Delete(ctx context.Context, q *usage.Query) (int64, error) {
	where, args := buildWhere(q)
	res, err := s.db.ExecContext(ctx, `DELETE FROM usage_records`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting usage records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted records: %w", err)
	}
	return n, nil
}

// Trim implements usage.Store.
func (s *SQLite) Trim(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	total, err := s.Count(ctx, nil)
	if err != nil {
		return 0, err
	}
	excess := total - keep
	if excess <= 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM usage_records WHERE id IN (
			SELECT id FROM usage_records
			ORDER BY timestamp ASC, id ASC
			LIMIT ?
		)`, excess)
	if err != nil {
		return 0, fmt.Errorf("trimming usage records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting trimmed records: %w", err)
	}
	return n, nil
}

// Close implements usage.Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhere translates a query's filters into a WHERE clause and its
// arguments. An empty query yields an empty clause.
func buildWhere(q *usage.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var conds []string
	var args []any

	if q.Start != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, q.Start.UTC())
	}
	if q.End != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, q.End.UTC())
	}
	if q.Backend != "" {
		conds = append(conds, "backend = ?")
		args = append(args, q.Backend)
	}
	if q.Model != "" {
		conds = append(conds, "model = ?")
		args = append(args, q.Model)
	}
	if q.ErrorCode != "" {
		conds = append(conds, "error_code = ?")
		args = append(args, q.ErrorCode)
	}
	if q.Failed != nil {
		if *q.Failed {
			conds = append(conds, "error_code != ''")
		} else {
			conds = append(conds, "error_code = ''")
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanRecord reads one row into a record.
func scanRecord(rows *sql.Rows) (*usage.Record, error) {
	var (
		rec       usage.Record
		latencyMS int64
		attempted string
	)
	err := rows.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Timestamp,
		&rec.Frontend,
		&rec.Backend,
		&rec.Model,
		&latencyMS,
		&rec.Streamed,
		&rec.PromptTokens,
		&rec.CompletionTokens,
		&rec.TotalTokens,
		&rec.Cost,
		&rec.FinishReason,
		&rec.Warnings,
		&rec.ErrorCode,
		&attempted,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning usage record: %w", err)
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.Latency = time.Duration(latencyMS) * time.Millisecond
	if attempted != "" {
		if err := json.Unmarshal([]byte(attempted), &rec.Attempted); err != nil {
			return nil, fmt.Errorf("decoding attempted backends: %w", err)
		}
	}
	return &rec, nil
}
