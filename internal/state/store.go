// Package state keeps a SQLite journal of pipeline runs and per-item
// progress. Completion markers on disk remain the authority for skipping;
// the journal records how each item got there and which artifacts it owns.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no journal entry exists.
var ErrNotFound = errors.New("not found")

// Store persists the journal in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Workers share one connection so writes never contend for the file lock.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id, inputDir string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, started_at) VALUES (?, ?, ?)`,
		id, inputDir, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, processed, skipped, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ? WHERE id = ?`,
		formatTime(time.Now()), processed, skipped, failed, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_dir, started_at, COALESCE(finished_at, ''), processed, skipped, failed
         FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	)
	var (
		run               Run
		started, finished string
	)
	if err := row.Scan(&run.ID, &run.InputDir, &started, &finished, &run.Processed, &run.Skipped, &run.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return &run, nil
}

// Transition records a status change for an item. Artifact columns from an
// earlier completion are kept so they can be cleaned up on reprocessing.
func (s *Store) Transition(ctx context.Context, baseName, sourcePath, runID string, status Status, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (base_name, source_path, status, run_id, message, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(base_name) DO UPDATE SET
             source_path = excluded.source_path,
             status = excluded.status,
             run_id = excluded.run_id,
             message = excluded.message,
             updated_at = excluded.updated_at`,
		baseName, sourcePath, string(status), runID, message, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record transition %s -> %s: %w", baseName, status, err)
	}
	return nil
}

// Complete stores a finished item together with its artifact paths.
func (s *Store) Complete(ctx context.Context, item *Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (
             base_name, source_path, status, run_id, orientation, identifier, score,
             transcription_path, orientated_path, processed_path, marker_path, message, updated_at
         ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(base_name) DO UPDATE SET
             source_path = excluded.source_path,
             status = excluded.status,
             run_id = excluded.run_id,
             orientation = excluded.orientation,
             identifier = excluded.identifier,
             score = excluded.score,
             transcription_path = excluded.transcription_path,
             orientated_path = excluded.orientated_path,
             processed_path = excluded.processed_path,
             marker_path = excluded.marker_path,
             message = excluded.message,
             updated_at = excluded.updated_at`,
		item.BaseName, item.SourcePath, string(StatusDone), item.RunID, item.Orientation, item.Identifier, item.Score,
		item.TranscriptionPath, item.OrientatedPath, item.ProcessedPath, item.MarkerPath, item.Message,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record completion %s: %w", item.BaseName, err)
	}
	return nil
}

// Get returns the journal entry for baseName.
func (s *Store) Get(ctx context.Context, baseName string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, selectItemColumns+` WHERE base_name = ?`, baseName)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query item %s: %w", baseName, err)
	}
	return item, nil
}

// List returns items ordered by base name, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := selectItemColumns
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY base_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// CountByStatus returns the number of items per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

const selectItemColumns = `SELECT base_name, source_path, status, run_id, orientation, identifier, score,
    transcription_path, orientated_path, processed_path, marker_path, message, updated_at FROM items`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		item    Item
		status  string
		updated string
	)
	if err := row.Scan(
		&item.BaseName, &item.SourcePath, &status, &item.RunID, &item.Orientation, &item.Identifier, &item.Score,
		&item.TranscriptionPath, &item.OrientatedPath, &item.ProcessedPath, &item.MarkerPath, &item.Message, &updated,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.UpdatedAt = parseTime(updated)
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
