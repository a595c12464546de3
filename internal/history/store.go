// Package history persists driver results in SQLite so past runs can be
// listed with `ffibridge history`.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/ffibridge/internal/driver"
	bridgeerrors "github.com/Aman-CERP/ffibridge/internal/errors"
)

// DefaultLimit is the number of entries Recent returns when limit <= 0.
const DefaultLimit = 20

// Entry is one recorded call.
type Entry struct {
	ID         int64         `json:"id"`
	RunID      string        `json:"run_id"`
	Path       string        `json:"path"`
	Symbol     string        `json:"symbol"`
	Label      string        `json:"label"`
	A          int32         `json:"a"`
	B          int32         `json:"b"`
	Sum        int32         `json:"sum"`
	Message    string        `json:"message,omitempty"`
	Status     string        `json:"status"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// PathStats aggregates entries for one path.
type PathStats struct {
	Path    string `json:"path"`
	OK      int    `json:"ok"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Store is a SQLite-backed result history.
type Store struct {
	db   *sql.DB
	path string
}

var _ driver.Recorder = (*Store)(nil)

// Open opens or creates the history database at path. Use ":memory:" for
// an in-memory store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, historyError("create history directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, historyError("open history database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, historyError("set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		symbol TEXT NOT NULL,
		label TEXT NOT NULL,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		sum INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ns INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_recorded ON results(recorded_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return historyError("create history schema", err)
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Record stores one driver result.
func (s *Store) Record(ctx context.Context, r driver.Result) error {
	recordedAt := r.StartedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (run_id, path, symbol, label, a, b, sum, message, status, error_code, error, duration_ns, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Path, r.Symbol, r.Label, r.A, r.B, r.Sum, r.Message,
		string(r.Status), r.ErrorCode, r.Error, int64(r.Duration), recordedAt.UTC())
	if err != nil {
		return historyError("record result", err)
	}

	slog.Debug("result recorded",
		slog.String("run_id", r.RunID),
		slog.String("path", r.Path),
		slog.String("status", string(r.Status)))
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, path, symbol, label, a, b, sum, message, status, error_code, error, duration_ns, recorded_at
		FROM results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, historyError("query history", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			duration int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Path, &e.Symbol, &e.Label, &e.A, &e.B, &e.Sum,
			&e.Message, &e.Status, &e.ErrorCode, &e.Error, &duration, &e.RecordedAt); err != nil {
			return nil, historyError("scan history row", err)
		}
		e.Duration = time.Duration(duration)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, historyError("iterate history", err)
	}
	return entries, nil
}

// Stats returns per-path status counts, ordered by path name.
func (s *Store) Stats(ctx context.Context) ([]PathStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path,
			SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM results
		GROUP BY path
		ORDER BY path
	`)
	if err != nil {
		return nil, historyError("query stats", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []PathStats
	for rows.Next() {
		var ps PathStats
		if err := rows.Scan(&ps.Path, &ps.OK, &ps.Skipped, &ps.Failed); err != nil {
			return nil, historyError("scan stats row", err)
		}
		stats = append(stats, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, historyError("iterate stats", err)
	}
	return stats, nil
}

// Prune keeps only the newest keep entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM results
		WHERE id NOT IN (SELECT id FROM results ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, historyError("prune history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, historyError("prune history", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return historyError("close history database", err)
	}
	return nil
}

func historyError(op string, err error) error {
	return bridgeerrors.New(bridgeerrors.ErrCodeHistoryFailed, fmt.Sprintf("failed to %s", op), err)
}
