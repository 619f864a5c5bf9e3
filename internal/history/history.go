// Package history keeps a SQLite ledger of search runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DefaultLimit is the number of entries Recent returns when limit <= 0.
const DefaultLimit = 20

// Entry is one recorded `use` invocation.
type Entry struct {
	ID        string
	RunID     string
	Profile   string
	Provider  string
	Query     string
	Count     int
	Path      string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded reports whether the run produced an artifact.
func (e Entry) Succeeded() bool {
	return e.Error == ""
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	l := &Ledger{db: db, dbPath: path}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	log.Debug().Str("dbPath", path).Msg("History ledger opened")
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		profile TEXT NOT NULL,
		provider TEXT NOT NULL,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		path TEXT,
		error TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_profile ON runs(profile);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Record stores e, assigning an ID when it has none.
func (l *Ledger) Record(ctx context.Context, e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_id, profile, provider, query, result_count, path, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.Profile, e.Provider, e.Query, e.Count, e.Path, e.Error,
		e.StartedAt.UnixMilli(), e.Duration.Milliseconds(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record run: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. An empty profile matches
// every profile.
func (l *Ledger) Recent(ctx context.Context, profile string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, run_id, profile, provider, query, result_count, path, error, started_at, duration_ms FROM runs`
	args := []any{}
	if profile != "" {
		query += ` WHERE profile = ?`
		args = append(args, profile)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			runID      sql.NullString
			path       sql.NullString
			errText    sql.NullString
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&e.ID, &runID, &e.Profile, &e.Provider, &e.Query, &e.Count, &path, &errText, &startedMs, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.RunID = runID.String
		e.Path = path.String
		e.Error = errText.String
		e.StartedAt = time.UnixMilli(startedMs)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
