package pipeline

import (
	"context"
	"strings"
	"time"

	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/subtitles"
	"subforge/internal/worker"
)

// runFinalize deduplicates chunk-seam overlap, renumbers the surviving cues,
// renders SRT and WebVTT, and closes the job out. When the pipeline is
// configured to stop before translation the job is left awaiting-translation
// instead of completed, with the untranslated output already rendered.
func (o *Orchestrator) runFinalize(ctx context.Context, task worker.Task) error {
	job, err := o.loadJob(ctx, task.JobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	finalStatus := queue.StatusCompleted
	languageSuffix := o.translationTarget()
	if o.resolveStopAfter(job) != stopAfterTranslate {
		finalStatus = queue.StatusAwaitingTranslation
		languageSuffix = o.resolveSourceLanguage(job)
	}
	return o.finalizeOutputs(ctx, job, finalStatus, languageSuffix)
}

// finalizeOutputs is the shared tail of Finalize and Translate: dedupe,
// renumber, render, upload, and set the job's closing status.
func (o *Orchestrator) finalizeOutputs(ctx context.Context, job *queue.Job, finalStatus queue.Status, languageSuffix string) error {
	segments, err := o.store.ListSegments(ctx, job.ID)
	if err != nil {
		return err
	}

	cues := make([]subtitles.Cue, len(segments))
	for i, segment := range segments {
		cues[i] = subtitles.Cue{
			Start:   segment.StartSeconds,
			End:     segment.EndSeconds,
			Text:    segment.TranslatedText,
			Wrapped: segment.FormattedText,
		}
	}

	keptIndices, deduped := subtitles.DeduplicateIndices(cues, o.cfg.Subtitle.GapSeconds)

	keep := make(map[int64]struct{}, len(keptIndices))
	for _, idx := range keptIndices {
		keep[segments[idx].ID] = struct{}{}
	}
	var dropped []int64
	for _, segment := range segments {
		if _, ok := keep[segment.ID]; !ok {
			dropped = append(dropped, segment.ID)
		}
	}
	if err := o.store.DeleteSegmentsByID(ctx, dropped); err != nil {
		return err
	}
	for i, idx := range keptIndices {
		if err := o.store.UpdateSegmentTiming(ctx, segments[idx].ID, i+1, deduped[i].Start, deduped[i].End); err != nil {
			return err
		}
	}

	srtPath, vttPath := o.outputStoragePaths(job, languageSuffix)
	if err := o.blob.Put(srtPath, strings.NewReader(subtitles.RenderSRT(deduped))); err != nil {
		return err
	}
	if err := o.blob.Put(vttPath, strings.NewReader(subtitles.RenderVTT(deduped))); err != nil {
		return err
	}

	now := time.Now().UTC()
	job.Status = finalStatus
	job.SRTPath = srtPath
	job.VTTPath = vttPath
	job.CompletedAt = &now
	job.ErrorMessage = ""
	if err := o.store.Update(ctx, job); err != nil {
		return err
	}

	o.removeJobScratch(job)

	logging.WithContext(ctx, o.logger).Info("job finalized",
		logging.String("status", string(finalStatus)),
		logging.Int("cues_total", len(deduped)),
		logging.String("srt_path", srtPath),
		logging.String("vtt_path", vttPath),
	)
	return nil
}
