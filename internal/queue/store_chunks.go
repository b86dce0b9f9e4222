package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const chunkColumns = `id, job_id, sequence, start_seconds, end_seconds, status,
    audio_path, segment_count, error_message, completed_at, created_at, updated_at`

// UpsertChunk creates or refreshes the chunk for (job, sequence). An already
// completed chunk is left untouched so a restarted job does not redo work.
func (s *Store) UpsertChunk(ctx context.Context, jobID int64, sequence int, startSeconds, endSeconds float64) (*Chunk, error) {
	existing, err := s.GetChunkBySequence(ctx, jobID, sequence)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if existing != nil {
		if existing.Status == ChunkCompleted {
			return existing, nil
		}
		_, err := s.db.ExecContext(ctx,
			`UPDATE chunks SET start_seconds = ?, end_seconds = ?, status = ?,
                 error_message = NULL, updated_at = ? WHERE id = ?`,
			startSeconds, endSeconds, ChunkPending, now, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("reset chunk: %w", err)
		}
		return s.GetChunk(ctx, existing.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (job_id, sequence, start_seconds, end_seconds, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		jobID, sequence, startSeconds, endSeconds, ChunkPending, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert chunk: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChunk(ctx, id)
}

// GetChunk fetches a chunk by identifier. A missing chunk returns (nil, nil).
func (s *Store) GetChunk(ctx context.Context, id int64) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return chunk, nil
}

// GetChunkBySequence fetches a chunk by its (job, sequence) key.
func (s *Store) GetChunkBySequence(ctx context.Context, jobID int64, sequence int) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE job_id = ? AND sequence = ?`, jobID, sequence)
	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk by sequence: %w", err)
	}
	return chunk, nil
}

// ListChunks returns a job's chunks in sequence order.
func (s *Store) ListChunks(ctx context.Context, jobID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE job_id = ? ORDER BY sequence`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// UpdateChunk persists changes to a chunk.
func (s *Store) UpdateChunk(ctx context.Context, chunk *Chunk) error {
	if chunk == nil {
		return errors.New("chunk is nil")
	}
	chunk.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE chunks
         SET start_seconds = ?, end_seconds = ?, status = ?, audio_path = ?,
             segment_count = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ?`,
		chunk.StartSeconds,
		chunk.EndSeconds,
		chunk.Status,
		nullableString(chunk.AudioPath),
		chunk.SegmentCount,
		nullableString(chunk.ErrorMessage),
		nullableTime(chunk.CompletedAt),
		chunk.UpdatedAt.Format(time.RFC3339Nano),
		chunk.ID,
	)
	if err != nil {
		return fmt.Errorf("update chunk: %w", err)
	}
	return nil
}

// DeleteChunks removes all chunks for a job.
func (s *Store) DeleteChunks(ctx context.Context, jobID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// CompleteChunk records a chunk's segments and marks it completed in one
// transaction: old segments for the chunk are replaced, the chunk is closed,
// and the job's completion counter is recomputed from the table. It reports
// whether every chunk of the job is now complete.
func (s *Store) CompleteChunk(ctx context.Context, chunkID int64, segments []Segment) (allDone bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var jobID int64
	if err := tx.QueryRowContext(ctx, `SELECT job_id FROM chunks WHERE id = ?`, chunkID).Scan(&jobID); err != nil {
		return false, fmt.Errorf("resolve chunk job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE chunk_id = ?`, chunkID); err != nil {
		return false, fmt.Errorf("clear chunk segments: %w", err)
	}
	for _, segment := range segments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO segments (job_id, chunk_id, sequence, start_seconds, end_seconds,
                 source_text, translated_text, formatted_text)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID, chunkID, segment.Sequence, segment.StartSeconds, segment.EndSeconds,
			segment.SourceText, segment.TranslatedText, segment.FormattedText)
		if err != nil {
			return false, fmt.Errorf("insert segment: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`UPDATE chunks SET status = ?, segment_count = ?, error_message = NULL,
             completed_at = ?, updated_at = ? WHERE id = ?`,
		ChunkCompleted, len(segments), now, now, chunkID); err != nil {
		return false, fmt.Errorf("complete chunk: %w", err)
	}

	var total, completed int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = ?), 0) FROM chunks WHERE job_id = ?`,
		ChunkCompleted, jobID).Scan(&total, &completed); err != nil {
		return false, fmt.Errorf("count chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET chunks_completed = ?, updated_at = ? WHERE id = ?`,
		completed, now, jobID); err != nil {
		return false, fmt.Errorf("update job counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return total > 0 && completed == total, nil
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var (
		chunk        Chunk
		status       string
		audioPath    sql.NullString
		errorMessage sql.NullString
		completedAt  sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&chunk.ID, &chunk.JobID, &chunk.Sequence, &chunk.StartSeconds, &chunk.EndSeconds,
		&status, &audioPath, &chunk.SegmentCount, &errorMessage, &completedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	chunk.Status = ChunkStatus(status)
	chunk.AudioPath = audioPath.String
	chunk.ErrorMessage = errorMessage.String
	chunk.CompletedAt = parseNullableTime(completedAt)
	chunk.CreatedAt = parseTime(createdAt)
	chunk.UpdatedAt = parseTime(updatedAt)
	return &chunk, nil
}
