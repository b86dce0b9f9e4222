package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"subforge/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
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
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJobParams carries the caller-supplied fields of a new job.
type NewJobParams struct {
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	StoragePath      string
	Meta             map[string]any
}

// NewJob inserts a job in the uploading state with a fresh public identifier.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	metaJSON, err := marshalMeta(params.Meta)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            public_id, original_filename, content_type, size_bytes, storage_path,
            status, meta_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		params.OriginalFilename,
		params.ContentType,
		params.SizeBytes,
		params.StoragePath,
		StatusUploading,
		metaJSON,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

const jobColumns = `id, public_id, original_filename, content_type, size_bytes, storage_path,
    status, duration_seconds, audio_path, srt_path, vtt_path,
    chunks_total, chunks_completed, error_message, meta_json, completed_at, created_at, updated_at`

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByPublicID fetches a job by its public identifier.
func (s *Store) GetByPublicID(ctx context.Context, publicID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE public_id = ?`, publicID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by public id: %w", err)
	}
	return job, nil
}

// List returns jobs, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	metaJSON, err := marshalMeta(job.Meta)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET original_filename = ?, content_type = ?, size_bytes = ?, storage_path = ?,
             status = ?, duration_seconds = ?, audio_path = ?, srt_path = ?, vtt_path = ?,
             chunks_total = ?, chunks_completed = ?, error_message = ?, meta_json = ?,
             completed_at = ?, updated_at = ?
         WHERE id = ?`,
		job.OriginalFilename,
		job.ContentType,
		job.SizeBytes,
		job.StoragePath,
		job.Status,
		job.DurationSeconds,
		nullableString(job.AudioPath),
		nullableString(job.SRTPath),
		nullableString(job.VTTPath),
		job.ChunksTotal,
		job.ChunksCompleted,
		nullableString(job.ErrorMessage),
		metaJSON,
		nullableTime(job.CompletedAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// SetStatus transitions a job's status, clearing any stale error message when
// the new status is not failed.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	errClause := ""
	if status != StatusFailed {
		errClause = ", error_message = NULL"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?`+errClause+`, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// Fail marks a job failed with an error message. Failure is sticky: a
// completed job is never demoted.
func (s *Store) Fail(ctx context.Context, id int64, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "job failed"
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusFailed, message, time.Now().UTC().Format(time.RFC3339Nano), id, StatusCompleted)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// Delete removes a job; chunks and segments cascade.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job          Job
		audioPath    sql.NullString
		srtPath      sql.NullString
		vttPath      sql.NullString
		errorMessage sql.NullString
		metaJSON     sql.NullString
		completedAt  sql.NullString
		createdAt    string
		updatedAt    string
		status       string
	)
	err := row.Scan(
		&job.ID, &job.PublicID, &job.OriginalFilename, &job.ContentType, &job.SizeBytes,
		&job.StoragePath, &status, &job.DurationSeconds, &audioPath, &srtPath, &vttPath,
		&job.ChunksTotal, &job.ChunksCompleted, &errorMessage, &metaJSON, &completedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.AudioPath = audioPath.String
	job.SRTPath = srtPath.String
	job.VTTPath = vttPath.String
	job.ErrorMessage = errorMessage.String
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &job.Meta); err != nil {
			return nil, fmt.Errorf("decode job meta: %w", err)
		}
	}
	job.CompletedAt = parseNullableTime(completedAt)
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return &job, nil
}

func marshalMeta(meta map[string]any) (any, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal job meta: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
