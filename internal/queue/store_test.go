package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestJob(t *testing.T, store *Store) *Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), NewJobParams{
		OriginalFilename: "movie.mp4",
		ContentType:      "video/mp4",
		SizeBytes:        1024,
		StoragePath:      "jobs/x/source.mp4",
		Meta:             map[string]any{"source_language": "ja"},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestNewJobDefaults(t *testing.T) {
	store := newTestStore(t)
	job := newTestJob(t, store)

	if job.Status != StatusUploading {
		t.Fatalf("status = %s, want uploading", job.Status)
	}
	if job.PublicID == "" {
		t.Fatal("expected generated public id")
	}
	if job.MetaString("source_language") != "ja" {
		t.Fatalf("meta = %+v", job.Meta)
	}

	byPublic, err := store.GetByPublicID(context.Background(), job.PublicID)
	if err != nil || byPublic == nil || byPublic.ID != job.ID {
		t.Fatalf("GetByPublicID = %+v, %v", byPublic, err)
	}
}

func TestUpdateRoundTripsMetaAndPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	job.Status = StatusProcessing
	job.DurationSeconds = 120.5
	job.AudioPath = "jobs/x/audio.wav"
	job.ChunksTotal = 3
	job.SetMeta("subtitle_source", "ocr")
	job.SetMeta("subtitle_progress_percent", 42.5)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Status != StatusProcessing || got.DurationSeconds != 120.5 || got.AudioPath != "jobs/x/audio.wav" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.MetaString("subtitle_source") != "ocr" || got.MetaFloat("subtitle_progress_percent") != 42.5 {
		t.Fatalf("meta mismatch: %+v", got.Meta)
	}
}

func TestFailIsStickyOnCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	if err := store.SetStatus(ctx, job.ID, StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if err := store.Fail(ctx, job.ID, "late failure"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("completed job was demoted to %s", got.Status)
	}

	other := newTestJob(t, store)
	if err := store.Fail(ctx, other.ID, "broken"); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetByID(ctx, other.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "broken" {
		t.Fatalf("fail: %+v", got)
	}
}

func TestUpsertChunkPreservesCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	chunk, err := store.UpsertChunk(ctx, job.ID, 0, 0, 70)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if chunk.Status != ChunkPending {
		t.Fatalf("status = %s", chunk.Status)
	}

	if _, err := store.CompleteChunk(ctx, chunk.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Re-planning the same sequence must not reset a completed chunk.
	again, err := store.UpsertChunk(ctx, job.ID, 0, 0, 68)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if again.ID != chunk.ID || again.Status != ChunkCompleted || again.EndSeconds != 70 {
		t.Fatalf("completed chunk was reset: %+v", again)
	}

	// A pending chunk is refreshed in place.
	second, err := store.UpsertChunk(ctx, job.ID, 1, 68, 120)
	if err != nil {
		t.Fatal(err)
	}
	refreshed, err := store.UpsertChunk(ctx, job.ID, 1, 68, 125)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.ID != second.ID || refreshed.EndSeconds != 125 {
		t.Fatalf("pending chunk not refreshed: %+v", refreshed)
	}
}

func TestCompleteChunkTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	first, _ := store.UpsertChunk(ctx, job.ID, 0, 0, 70)
	second, _ := store.UpsertChunk(ctx, job.ID, 1, 68, 120)

	allDone, err := store.CompleteChunk(ctx, first.ID, []Segment{
		{Sequence: 1, StartSeconds: 0, EndSeconds: 2, SourceText: "こんにちは", TranslatedText: "こんにちは", FormattedText: "こんにちは"},
		{Sequence: 2, StartSeconds: 2, EndSeconds: 4, SourceText: "元気です", TranslatedText: "元気です", FormattedText: "元気です"},
	})
	if err != nil {
		t.Fatalf("complete first: %v", err)
	}
	if allDone {
		t.Fatal("job should not be done with one chunk pending")
	}

	gotJob, _ := store.GetByID(ctx, job.ID)
	if gotJob.ChunksCompleted != 1 {
		t.Fatalf("chunks_completed = %d", gotJob.ChunksCompleted)
	}

	// Completing the same chunk again replaces its segments instead of
	// duplicating them.
	if _, err := store.CompleteChunk(ctx, first.ID, []Segment{
		{Sequence: 1, StartSeconds: 0, EndSeconds: 2, SourceText: "こんにちは", TranslatedText: "こんにちは", FormattedText: "こんにちは"},
	}); err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	segments, err := store.ListSegments(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected replaced segments, got %d", len(segments))
	}

	allDone, err = store.CompleteChunk(ctx, second.ID, []Segment{
		{Sequence: 1, StartSeconds: 70, EndSeconds: 72, SourceText: "さようなら", TranslatedText: "さようなら", FormattedText: "さようなら"},
	})
	if err != nil {
		t.Fatalf("complete second: %v", err)
	}
	if !allDone {
		t.Fatal("expected all chunks complete")
	}
	gotChunk, _ := store.GetChunk(ctx, second.ID)
	if gotChunk.Status != ChunkCompleted || gotChunk.SegmentCount != 1 || gotChunk.CompletedAt == nil {
		t.Fatalf("chunk not closed: %+v", gotChunk)
	}
}

func TestSegmentOps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	err := store.ReplaceSegments(ctx, job.ID, []Segment{
		{Sequence: 5, StartSeconds: 10, EndSeconds: 12, SourceText: "b", TranslatedText: "b", FormattedText: "b"},
		{Sequence: 1, StartSeconds: 0, EndSeconds: 2, SourceText: "a", TranslatedText: "a", FormattedText: "a"},
		{Sequence: 9, StartSeconds: 20, EndSeconds: 22, SourceText: "c", TranslatedText: "c", FormattedText: "c"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	segments, err := store.ListSegments(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 3 || segments[0].SourceText != "a" || segments[2].SourceText != "c" {
		t.Fatalf("list not ordered by start: %+v", segments)
	}

	if err := store.DeleteSegmentsByID(ctx, []int64{segments[1].ID}); err != nil {
		t.Fatal(err)
	}
	if err := store.RenumberSegments(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	segments, _ = store.ListSegments(ctx, job.ID)
	if len(segments) != 2 || segments[0].Sequence != 1 || segments[1].Sequence != 2 {
		t.Fatalf("renumber: %+v", segments)
	}

	if err := store.UpdateSegmentTexts(ctx, segments[0].ID, "Hello", "Hello"); err != nil {
		t.Fatal(err)
	}
	segments, _ = store.ListSegments(ctx, job.ID)
	if segments[0].TranslatedText != "Hello" {
		t.Fatalf("translation not stored: %+v", segments[0])
	}
}

func TestDeleteJobCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job := newTestJob(t, store)

	chunk, _ := store.UpsertChunk(ctx, job.ID, 0, 0, 10)
	if _, err := store.CompleteChunk(ctx, chunk.ID, []Segment{
		{Sequence: 1, StartSeconds: 0, EndSeconds: 1, SourceText: "x", TranslatedText: "x", FormattedText: "x"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetByID(ctx, job.ID); got != nil {
		t.Fatal("job still present")
	}
	if chunks, _ := store.ListChunks(ctx, job.ID); len(chunks) != 0 {
		t.Fatal("chunks not cascaded")
	}
	if segments, _ := store.ListSegments(ctx, job.ID); len(segments) != 0 {
		t.Fatal("segments not cascaded")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestJob(t, store)
	b := newTestJob(t, store)
	_ = store.SetStatus(ctx, a.ID, StatusProcessing)
	_ = store.SetStatus(ctx, b.ID, StatusCompleted)

	jobs, err := store.List(ctx, StatusProcessing)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != a.ID {
		t.Fatalf("filtered list: %+v", jobs)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("expected newest first: %+v", all)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Awaiting-Translation "); !ok || status != StatusAwaitingTranslation {
		t.Fatalf("parse = %v %v", status, ok)
	}
	if _, ok := ParseStatus("ripping"); ok {
		t.Fatal("unknown status accepted")
	}
}
