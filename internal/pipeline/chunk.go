package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/storage"
	"subforge/internal/subtitles"
	"subforge/internal/textutil"
	"subforge/internal/worker"
)

// timedText pairs a chunk-relative time span with its source and display
// texts while the chunk moves through transcription and translation.
type timedText struct {
	start  float64
	end    float64
	source string
	text   string
}

// runProcessChunk transcribes one chunk, optionally translates it inline,
// formats the cues, and atomically records completion. Re-running a
// completed chunk is a no-op.
func (o *Orchestrator) runProcessChunk(ctx context.Context, task worker.Task) error {
	chunk, err := o.store.GetChunk(ctx, task.ChunkID)
	if err != nil {
		return err
	}
	if chunk == nil {
		return services.Wrap(services.ErrNotFound, "process-chunk", "load chunk", fmt.Sprintf("chunk %d not found", task.ChunkID), nil)
	}
	if chunk.Status == queue.ChunkCompleted {
		return nil
	}

	job, err := o.loadJob(ctx, chunk.JobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	logger := logging.WithContext(ctx, o.logger)

	chunk.Status = queue.ChunkProcessing
	chunk.ErrorMessage = ""
	if err := o.store.UpdateChunk(ctx, chunk); err != nil {
		return err
	}

	if chunk.AudioPath == "" {
		return o.failChunk(ctx, chunk, services.Wrap(services.ErrNotFound, "process-chunk", "audio", "chunk has no audio file", nil))
	}
	if exists, err := o.blob.Exists(chunk.AudioPath); err != nil {
		return o.failChunk(ctx, chunk, services.Wrap(services.ErrTransient, "process-chunk", "audio", "check chunk audio", err))
	} else if !exists {
		return o.failChunk(ctx, chunk, services.Wrap(services.ErrNotFound, "process-chunk", "audio", "missing chunk audio file", nil))
	}

	scratchDir, err := o.jobScratchDir(job, "chunks")
	if err != nil {
		return o.failChunk(ctx, chunk, services.Wrap(services.ErrTransient, "process-chunk", "scratch", "create scratch directory", err))
	}
	guard := &scratchGuard{}
	defer guard.release()

	audioLocal := guard.track(filepath.Join(scratchDir, fmt.Sprintf("chunk-%d.wav", chunk.Sequence)))
	if err := storage.DownloadToLocal(ctx, o.blob, chunk.AudioPath, audioLocal, o.downloadOptions(), logger); err != nil {
		return o.failChunk(ctx, chunk, services.Wrap(services.ErrTransient, "process-chunk", "download", "download chunk audio", err))
	}

	sourceLanguage := o.resolveSourceLanguage(job)
	sttSegments, err := o.stt.Transcribe(ctx, audioLocal, sourceLanguage)
	if err != nil {
		return o.failChunk(ctx, chunk, err)
	}

	pairs, err := o.translateChunkSegments(ctx, job, sourceLanguage, sttSegments)
	if err != nil {
		return o.failChunk(ctx, chunk, err)
	}

	records := o.formatChunkSegments(job, chunk, pairs)

	allDone, err := o.store.CompleteChunk(ctx, chunk.ID, records)
	if err != nil {
		return o.failChunk(ctx, chunk, err)
	}

	logger.Info("chunk completed",
		logging.Int("segments", len(records)),
		logging.Bool("all_chunks_done", allDone),
	)

	if !allDone {
		return nil
	}
	if o.resolveStopAfter(job) == stopAfterChunks {
		logger.Info("all chunks done; stopping before finalize")
		return nil
	}
	return o.enqueue(ctx, worker.Task{Kind: stage.KindFinalize, JobID: job.ID})
}

// translateChunkSegments runs the inline per-chunk translation. When the
// pipeline stops before translation the source text doubles as display text.
func (o *Orchestrator) translateChunkSegments(ctx context.Context, job *queue.Job, sourceLanguage string, sttSegments []subtitles.Segment) ([]timedText, error) {
	pairs := make([]timedText, 0, len(sttSegments))

	if o.resolveStopAfter(job) != stopAfterTranslate {
		for _, segment := range sttSegments {
			text := strings.TrimSpace(segment.Text)
			if text == "" {
				continue
			}
			pairs = append(pairs, timedText{start: segment.Start, end: segment.End, source: text, text: text})
		}
		return pairs, nil
	}

	texts := make([]string, len(sttSegments))
	for i, segment := range sttSegments {
		texts[i] = segment.Text
	}
	translations, err := o.translator.Translate(ctx, texts, o.translationSourceCode(sourceLanguage), o.translationTarget())
	if err != nil {
		return nil, err
	}

	for i, segment := range sttSegments {
		translated := ""
		if i < len(translations) {
			translated = strings.TrimSpace(translations[i])
		}
		if translated == "" {
			continue
		}
		pairs = append(pairs, timedText{
			start:  segment.Start,
			end:    segment.End,
			source: strings.TrimSpace(segment.Text),
			text:   translated,
		})
	}
	return pairs, nil
}

// formatChunkSegments shapes the chunk's cues and rebases their times onto
// the full-audio timeline.
func (o *Orchestrator) formatChunkSegments(job *queue.Job, chunk *queue.Chunk, pairs []timedText) []queue.Segment {
	inputs := make([]subtitles.Segment, len(pairs))
	for i, pair := range pairs {
		inputs[i] = subtitles.Segment{Start: pair.start, End: pair.end, Text: pair.text}
	}

	grouped := o.formatter.FormatGrouped(inputs)

	var records []queue.Segment
	sequence := 1
	for i, cues := range grouped {
		for _, cue := range cues {
			chunkID := chunk.ID
			records = append(records, queue.Segment{
				JobID:          job.ID,
				ChunkID:        &chunkID,
				Sequence:       sequence,
				StartSeconds:   round3(chunk.StartSeconds + cue.Start),
				EndSeconds:     round3(chunk.StartSeconds + cue.End),
				SourceText:     textutil.SanitizeUTF8(pairs[i].source),
				TranslatedText: textutil.SanitizeUTF8(cue.Text),
				FormattedText:  textutil.SanitizeUTF8(cue.DisplayText()),
			})
			sequence++
		}
	}
	return records
}

// failChunk records the failure on the chunk and propagates the error so the
// worker's retry budget decides what happens next.
func (o *Orchestrator) failChunk(ctx context.Context, chunk *queue.Chunk, cause error) error {
	chunk.Status = queue.ChunkFailed
	chunk.ErrorMessage = cause.Error()
	if err := o.store.UpdateChunk(ctx, chunk); err != nil {
		o.logger.Error("failed to persist chunk failure",
			logging.Int64(logging.FieldJobID, chunk.JobID),
			logging.Int(logging.FieldChunk, chunk.Sequence),
			logging.Error(err),
		)
	}
	return cause
}
