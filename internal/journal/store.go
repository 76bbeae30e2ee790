package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"ladle/internal/ingest"
)

// Entry is one journaled submission: a job this client created, with the
// last status transition it observed. The server remains the source of
// truth for live job state; the journal only records what this client saw.
type Entry struct {
	JobID     string
	URL       string
	Title     string
	RecipeID  string
	Status    ingest.Status
	ErrorCode ingest.ErrorCode
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store manages journal persistence backed by SQLite. A sidecar file lock
// keeps concurrent CLI invocations from writing at once.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
    job_id     TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    recipe_id  TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL,
    error_code TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_updated ON submissions(updated_at DESC);
`

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire journal lock: %w", err)
	}
	if !locked {
		return nil, errors.New("journal is in use by another ladle process")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return store, nil
}

// Close releases the database connection and the journal lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var dbErr error
	if s.db != nil {
		dbErr = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && dbErr == nil {
			dbErr = unlockErr
		}
	}
	return dbErr
}

// Record inserts or refreshes a journal entry for a submitted job.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.JobID) == "" {
		return errors.New("journal entry requires a job id")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = ingest.StatusQueued
	}
	return s.execWithRetry(ctx, `
INSERT INTO submissions (job_id, url, title, recipe_id, status, error_code, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
    url = excluded.url,
    title = excluded.title,
    recipe_id = excluded.recipe_id,
    status = excluded.status,
    error_code = excluded.error_code,
    updated_at = excluded.updated_at`,
		entry.JobID, entry.URL, entry.Title, entry.RecipeID,
		string(entry.Status), string(entry.ErrorCode), entry.CreatedAt, entry.UpdatedAt)
}

// UpdateStatus records a status transition observed for a journaled job.
// Unknown job ids are ignored so attach-style watches of jobs submitted
// elsewhere do not create partial rows.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status ingest.Status, code ingest.ErrorCode, recipeID string) error {
	if strings.TrimSpace(jobID) == "" {
		return errors.New("job id required")
	}
	return s.execWithRetry(ctx, `
UPDATE submissions
SET status = ?, error_code = ?, recipe_id = CASE WHEN ? != '' THEN ? ELSE recipe_id END, updated_at = ?
WHERE job_id = ?`,
		string(status), string(code), recipeID, recipeID, time.Now().UTC(), jobID)
}

// Get returns the journal entry for a job id.
func (s *Store) Get(ctx context.Context, jobID string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT job_id, url, title, recipe_id, status, error_code, created_at, updated_at
FROM submissions WHERE job_id = ?`, jobID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load journal entry: %w", err)
	}
	return entry, true, nil
}

// List returns journal entries ordered most-recently-updated first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, url, title, recipe_id, status, error_code, created_at, updated_at
FROM submissions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var status, code string
	if err := row.Scan(&entry.JobID, &entry.URL, &entry.Title, &entry.RecipeID,
		&status, &code, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	if parsed, ok := ingest.ParseStatus(status); ok {
		entry.Status = parsed
	} else {
		entry.Status = ingest.Status(status)
	}
	entry.ErrorCode = ingest.ErrorCode(code)
	return &entry, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
