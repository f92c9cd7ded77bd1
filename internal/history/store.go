package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Entry is one recorded pipeline run.
type Entry struct {
	ID           int64
	RunID        string
	Source       string
	LocalSource  bool
	Model        string
	Engine       string
	Status       Status
	FailedStage  string
	ErrorKind    string
	ErrorMessage string
	Segments     int
	OutputPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the wall-clock length of the run.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const entryColumns = `id, run_id, source, local_source, model, engine, status, failed_stage,
    error_kind, error_message, segments, output_path, started_at, finished_at`

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
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

// Record inserts entry. A second record for the same run ID replaces the first.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.RunID == "" {
		return fmt.Errorf("record run: empty run id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, source, local_source, model, engine, status, failed_stage,
            error_kind, error_message, segments, output_path, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            status = excluded.status,
            failed_stage = excluded.failed_stage,
            error_kind = excluded.error_kind,
            error_message = excluded.error_message,
            segments = excluded.segments,
            output_path = COALESCE(excluded.output_path, runs.output_path),
            finished_at = excluded.finished_at`,
		entry.RunID,
		entry.Source,
		boolToInt(entry.LocalSource),
		nullableString(entry.Model),
		nullableString(entry.Engine),
		string(entry.Status),
		nullableString(entry.FailedStage),
		nullableString(entry.ErrorKind),
		nullableString(entry.ErrorMessage),
		entry.Segments,
		nullableString(entry.OutputPath),
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// SetOutputPath stores where the subtitle document for runID was written.
func (s *Store) SetOutputPath(ctx context.Context, runID, outputPath string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET output_path = ? WHERE run_id = ?`, outputPath, runID)
	if err != nil {
		return fmt.Errorf("set output path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set output path: run %s not found", runID)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return entries, nil
}

// Prune deletes runs that started before cutoff and returns the count removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry    Entry
		local    int
		status   string
		started  string
		finished string
	)
	var model, engine, failedStage, errKind, errMsg, output sql.NullString
	if err := row.Scan(
		&entry.ID, &entry.RunID, &entry.Source, &local, &model, &engine, &status, &failedStage,
		&errKind, &errMsg, &entry.Segments, &output, &started, &finished,
	); err != nil {
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	entry.LocalSource = local != 0
	entry.Status = Status(status)
	entry.Model = model.String
	entry.Engine = engine.String
	entry.FailedStage = failedStage.String
	entry.ErrorKind = errKind.String
	entry.ErrorMessage = errMsg.String
	entry.OutputPath = output.String
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return entry, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
