package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"subforge/internal/chunking"
	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/services"
	"subforge/internal/stage"
	"subforge/internal/storage"
	"subforge/internal/subtitles"
	"subforge/internal/textutil"
	"subforge/internal/worker"
)

// runStart downloads the source media, picks a subtitle source, and either
// stores extracted subtitles directly or plans audio chunks and fans out
// ProcessChunk tasks.
func (o *Orchestrator) runStart(ctx context.Context, task worker.Task) error {
	job, err := o.loadJob(ctx, task.JobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	logger := logging.WithContext(ctx, o.logger)

	scratchDir, err := o.jobScratchDir(job)
	if err != nil {
		return services.Wrap(services.ErrTransient, "start", "scratch", "create scratch directory", err)
	}
	guard := &scratchGuard{}
	defer guard.release()

	sourceLocal := guard.track(filepath.Join(scratchDir, sourceFileName(job.OriginalFilename)))
	logger.Info("downloading source media",
		logging.String("storage_path", job.StoragePath),
	)
	if err := storage.DownloadToLocal(ctx, o.blob, job.StoragePath, sourceLocal, o.downloadOptions(), logger); err != nil {
		return services.Wrap(services.ErrTransient, "start", "download", "download source media", err)
	}

	sourceDuration, err := o.audio.ProbeDuration(ctx, sourceLocal)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "start", "probe", "probe source duration", err)
	}

	sourceLanguage := o.resolveSourceLanguage(job)
	subtitleSource := o.resolveSubtitleSource(job)

	switch subtitleSource {
	case "ocr":
		if !o.cfg.OCR.Enabled {
			o.failJob(ctx, job, "OCR is disabled for this environment")
			return nil
		}
		segments, err := o.runOCRPasses(ctx, job, sourceLocal, scratchDir)
		if err != nil {
			if isContextError(err) {
				return err
			}
			o.failJob(ctx, job, "OCR failed: "+err.Error())
			return nil
		}
		if segments == nil {
			o.failJob(ctx, job, "OCR did not detect any subtitles")
			return nil
		}
		return o.storeAndRouteSubtitles(ctx, job, segments, sourceDuration, "ocr")

	case "embedded":
		segments, err := o.embedded.Extract(ctx, sourceLocal, scratchDir, sourceLanguage)
		if err != nil {
			if isContextError(err) {
				return err
			}
			o.failJob(ctx, job, "embedded subtitle extraction failed: "+err.Error())
			return nil
		}
		if segments == nil {
			o.failJob(ctx, job, "no embedded subtitle track found")
			return nil
		}
		return o.storeAndRouteSubtitles(ctx, job, segments, sourceDuration, "embedded")

	case "auto":
		if o.cfg.OCR.Enabled {
			segments, err := o.runOCRPasses(ctx, job, sourceLocal, scratchDir)
			switch {
			case isContextError(err):
				return err
			case err != nil:
				logger.Warn("OCR failed, falling back to other subtitle sources", logging.Error(err))
			case segments != nil:
				return o.storeAndRouteSubtitles(ctx, job, segments, sourceDuration, "ocr")
			}
		}
		segments, err := o.embedded.Extract(ctx, sourceLocal, scratchDir, sourceLanguage)
		switch {
		case isContextError(err):
			return err
		case err != nil:
			logger.Warn("embedded subtitle extraction failed, falling back to audio", logging.Error(err))
		case segments != nil:
			return o.storeAndRouteSubtitles(ctx, job, segments, sourceDuration, "embedded")
		}
	}

	return o.startAudioPath(ctx, job, guard, scratchDir, sourceLocal)
}

// startAudioPath extracts (or re-downloads) the mono WAV track, plans silence
// aware chunks, cuts and uploads each chunk, and dispatches their tasks.
func (o *Orchestrator) startAudioPath(ctx context.Context, job *queue.Job, guard *scratchGuard, scratchDir, sourceLocal string) error {
	logger := logging.WithContext(ctx, o.logger)

	audioLocal := guard.track(filepath.Join(scratchDir, "audio.wav"))
	audioStorage := job.AudioPath
	if audioStorage == "" {
		audioStorage = o.audioStoragePath(job)
	}

	reuseStored := false
	if job.AudioPath != "" {
		exists, err := o.blob.Exists(job.AudioPath)
		if err != nil {
			logger.Warn("failed to check stored audio, re-extracting", logging.Error(err))
		}
		reuseStored = err == nil && exists
	}

	if reuseStored {
		if err := storage.DownloadToLocal(ctx, o.blob, audioStorage, audioLocal, o.downloadOptions(), logger); err != nil {
			return services.Wrap(services.ErrTransient, "start", "download", "download extracted audio", err)
		}
	} else {
		logger.Info("extracting audio track")
		if err := o.audio.ExtractAudio(ctx, sourceLocal, audioLocal); err != nil {
			return services.Wrap(services.ErrExternalTool, "start", "extract audio", "extract audio track", err)
		}
		if err := storage.StoreFromLocal(o.blob, audioLocal, audioStorage); err != nil {
			return services.Wrap(services.ErrTransient, "start", "upload", "store extracted audio", err)
		}
		job.AudioPath = audioStorage
	}

	duration, err := o.audio.ProbeDuration(ctx, audioLocal)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "start", "probe", "probe audio duration", err)
	}

	logger.Info("detecting silence", logging.Float64("duration_seconds", duration))
	silenceLog, err := o.audio.DetectSilence(ctx, audioLocal, o.cfg.Silence.MinSeconds, o.cfg.Silence.Noise)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "start", "silencedetect", "detect silence", err)
	}
	silences := chunking.ParseSilence(silenceLog, o.cfg.Silence.MinSeconds)

	spans := chunking.Plan(duration, silences, o.cfg.Chunk.MinSeconds, o.cfg.Chunk.MaxSeconds, o.cfg.Chunk.OverlapSeconds)
	if len(spans) == 0 {
		o.failJob(ctx, job, "no audio chunks could be planned")
		return nil
	}

	existing, err := o.store.ListChunks(ctx, job.ID)
	if err != nil {
		return err
	}
	completed := 0
	for _, chunk := range existing {
		if chunk.Status == queue.ChunkCompleted {
			completed++
		}
	}

	job.Status = queue.StatusProcessing
	job.DurationSeconds = duration
	job.ChunksTotal = len(spans)
	job.ChunksCompleted = completed
	job.SetMeta("silences", silences)
	if err := o.store.Update(ctx, job); err != nil {
		return err
	}

	for _, span := range spans {
		chunk, err := o.store.UpsertChunk(ctx, job.ID, span.Sequence, span.Start, span.End)
		if err != nil {
			return err
		}
		if chunk.Status == queue.ChunkCompleted {
			continue
		}

		chunkLocal := guard.track(filepath.Join(scratchDir, fmt.Sprintf("chunk-%d.wav", span.Sequence)))
		chunkDuration := math.Max(0.1, span.End-span.Start)
		if err := o.audio.CutChunk(ctx, audioLocal, span.Start, chunkDuration, chunkLocal); err != nil {
			return services.Wrap(services.ErrExternalTool, "start", "cut chunk", fmt.Sprintf("cut chunk %d", span.Sequence), err)
		}

		chunkStorage := o.chunkStoragePath(job, span.Sequence)
		if err := storage.StoreFromLocal(o.blob, chunkLocal, chunkStorage); err != nil {
			return services.Wrap(services.ErrTransient, "start", "upload", fmt.Sprintf("store chunk %d audio", span.Sequence), err)
		}
		chunk.AudioPath = chunkStorage
		if err := o.store.UpdateChunk(ctx, chunk); err != nil {
			return err
		}

		if err := o.enqueue(ctx, worker.Task{
			Kind:     stage.KindProcessChunk,
			JobID:    job.ID,
			ChunkID:  chunk.ID,
			Sequence: chunk.Sequence,
		}); err != nil {
			return err
		}
	}

	logger.Info("queued chunks", logging.Int("chunks_total", len(spans)))
	return nil
}

// storeAndRouteSubtitles replaces the job's cue set with directly extracted
// subtitles and routes the job to Translate, or straight to Finalize when the
// pipeline stops before translation.
func (o *Orchestrator) storeAndRouteSubtitles(ctx context.Context, job *queue.Job, segments []subtitles.Segment, durationSeconds float64, source string) error {
	if err := o.store.DeleteChunks(ctx, job.ID); err != nil {
		return err
	}

	records := make([]queue.Segment, 0, len(segments))
	sequence := 1
	for _, segment := range segments {
		text := textutil.SanitizeUTF8(strings.TrimSpace(segment.Text))
		if text == "" || segment.End <= segment.Start {
			continue
		}
		formatted := textutil.SanitizeUTF8(o.formatter.WrapText(text))
		if formatted == "" {
			formatted = text
		}
		records = append(records, queue.Segment{
			JobID:          job.ID,
			Sequence:       sequence,
			StartSeconds:   round3(segment.Start),
			EndSeconds:     round3(segment.End),
			SourceText:     text,
			TranslatedText: text,
			FormattedText:  formatted,
		})
		sequence++
	}

	if err := o.store.ReplaceSegments(ctx, job.ID, records); err != nil {
		return err
	}

	job.Status = queue.StatusProcessing
	job.DurationSeconds = durationSeconds
	job.ChunksTotal = 0
	job.ChunksCompleted = 0
	job.SetMeta("subtitle_source", source)
	job.SetMeta("subtitle_segment_count", len(records))
	job.SetMeta("subtitle_progress_percent", 100.0)
	if err := o.store.Update(ctx, job); err != nil {
		return err
	}

	logging.WithContext(ctx, o.logger).Info("stored extracted subtitles",
		logging.String("subtitle_source", source),
		logging.Int("segments_total", len(records)),
	)

	next := stage.KindTranslate
	if o.resolveStopAfter(job) != stopAfterTranslate {
		next = stage.KindFinalize
	}
	return o.enqueue(ctx, worker.Task{Kind: next, JobID: job.ID})
}

func sourceFileName(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = ".mp4"
	}
	return "source" + ext
}

func isContextError(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
