package queue

import (
	"context"
	"database/sql"
	"fmt"
)

const segmentColumns = `id, job_id, chunk_id, sequence, start_seconds, end_seconds,
    source_text, translated_text, formatted_text`

// ReplaceSegments deletes a job's segments and inserts the given set, used
// when subtitles come from OCR or an embedded track rather than chunked audio.
func (s *Store) ReplaceSegments(ctx context.Context, jobID int64, segments []Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for _, segment := range segments {
		var chunkID any
		if segment.ChunkID != nil {
			chunkID = *segment.ChunkID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO segments (job_id, chunk_id, sequence, start_seconds, end_seconds,
                 source_text, translated_text, formatted_text)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID, chunkID, segment.Sequence, segment.StartSeconds, segment.EndSeconds,
			segment.SourceText, segment.TranslatedText, segment.FormattedText)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListSegments returns a job's segments ordered by start time, then sequence.
func (s *Store) ListSegments(ctx context.Context, jobID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE job_id = ?
         ORDER BY start_seconds, sequence`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// DeleteSegmentsByID removes specific segments, used when translation filters
// out noise cues.
func (s *Store) DeleteSegmentsByID(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete segment %d: %w", id, err)
		}
	}
	return nil
}

// UpdateSegmentTexts stores a segment's translated and formatted text.
func (s *Store) UpdateSegmentTexts(ctx context.Context, id int64, translatedText, formattedText string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE segments SET translated_text = ?, formatted_text = ? WHERE id = ?`,
		translatedText, formattedText, id)
	if err != nil {
		return fmt.Errorf("update segment texts: %w", err)
	}
	return nil
}

// UpdateSegmentTiming rewrites a segment's sequence number and time span,
// used when deduplication clips an overlapping cue.
func (s *Store) UpdateSegmentTiming(ctx context.Context, id int64, sequence int, startSeconds, endSeconds float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE segments SET sequence = ?, start_seconds = ?, end_seconds = ? WHERE id = ?`,
		sequence, startSeconds, endSeconds, id)
	if err != nil {
		return fmt.Errorf("update segment timing: %w", err)
	}
	return nil
}

// RenumberSegments rewrites sequence numbers in start-time order so the final
// subtitle file counts 1..n without holes.
func (s *Store) RenumberSegments(ctx context.Context, jobID int64) error {
	segments, err := s.ListSegments(ctx, jobID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, segment := range segments {
		if _, err := tx.ExecContext(ctx,
			`UPDATE segments SET sequence = ? WHERE id = ?`, i+1, segment.ID); err != nil {
			return fmt.Errorf("renumber segment %d: %w", segment.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanSegment(row rowScanner) (Segment, error) {
	var (
		segment Segment
		chunkID sql.NullInt64
	)
	err := row.Scan(
		&segment.ID, &segment.JobID, &chunkID, &segment.Sequence,
		&segment.StartSeconds, &segment.EndSeconds,
		&segment.SourceText, &segment.TranslatedText, &segment.FormattedText,
	)
	if err != nil {
		return Segment{}, err
	}
	if chunkID.Valid {
		id := chunkID.Int64
		segment.ChunkID = &id
	}
	return segment, nil
}
