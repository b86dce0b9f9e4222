package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode"

	"subforge/internal/logging"
	"subforge/internal/queue"
	"subforge/internal/textutil"
	"subforge/internal/worker"
)

// runTranslate batches all stored cues through the translation provider,
// re-wraps the translated text, and then deduplicates and renders the final
// output. Only jobs awaiting translation or still processing are eligible.
func (o *Orchestrator) runTranslate(ctx context.Context, task worker.Task) error {
	job, err := o.loadJob(ctx, task.JobID)
	if err != nil {
		return err
	}
	if job.Status != queue.StatusAwaitingTranslation && job.Status != queue.StatusProcessing {
		return nil
	}

	logger := logging.WithContext(ctx, o.logger)

	job.Status = queue.StatusProcessing
	job.ErrorMessage = ""
	if err := o.store.SetStatus(ctx, job.ID, queue.StatusProcessing); err != nil {
		return err
	}

	segments, err := o.store.ListSegments(ctx, job.ID)
	if err != nil {
		return err
	}

	sourceLanguage := o.resolveSourceLanguage(job)
	segments, err = o.filterSourceSegments(ctx, job, segments, sourceLanguage)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		o.failJob(ctx, job, "no subtitle segments available for translation")
		return nil
	}

	sourceCode := o.translationSourceCode(sourceLanguage)
	target := o.translationTarget()
	batchSize := o.cfg.Translation.BatchSize
	if batchSize < 1 {
		batchSize = 50
	}
	throttle := time.Duration(o.cfg.Translation.ThrottleMS) * time.Millisecond

	for offset := 0; offset < len(segments); offset += batchSize {
		if offset > 0 && throttle > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(throttle):
			}
		}

		batch := segments[offset:min(offset+batchSize, len(segments))]
		texts := make([]string, len(batch))
		for i, segment := range batch {
			texts[i] = segment.SourceText
		}

		translations, err := o.translator.Translate(ctx, texts, sourceCode, target)
		if err != nil {
			return err
		}

		for i, segment := range batch {
			translated := ""
			if i < len(translations) {
				translated = strings.TrimSpace(translations[i])
			}
			if translated == "" {
				continue
			}
			formatted := o.formatter.WrapText(translated)
			if formatted == "" {
				formatted = translated
			}
			if err := o.store.UpdateSegmentTexts(ctx, segment.ID, translated, formatted); err != nil {
				return err
			}
		}
	}

	logger.Info("translation complete",
		logging.Int("segments_total", len(segments)),
		logging.String("target_language", target),
	)

	return o.finalizeOutputs(ctx, job, queue.StatusCompleted, target)
}

// filterSourceSegments drops cues that do not look like real subtitle text
// before spending translation quota on them. Only applies to Chinese sources,
// where OCR noise is common: non-Chinese-looking lines go, and for
// OCR-sourced jobs so do blink-length cues. Dropped rows are deleted.
func (o *Orchestrator) filterSourceSegments(ctx context.Context, job *queue.Job, segments []queue.Segment, sourceLanguage string) ([]queue.Segment, error) {
	if sourceLanguage != "zh" {
		return segments, nil
	}

	minDuration := 0.0
	if job.MetaString("subtitle_source") == "ocr" {
		minDuration = o.cfg.OCR.MinSegmentSeconds
	}

	kept := make([]queue.Segment, 0, len(segments))
	var dropped []int64
	for _, segment := range segments {
		if minDuration > 0 && segment.EndSeconds-segment.StartSeconds < minDuration {
			dropped = append(dropped, segment.ID)
			continue
		}
		if !likelyChineseSubtitle(segment.SourceText) {
			dropped = append(dropped, segment.ID)
			continue
		}
		kept = append(kept, segment)
	}

	if len(dropped) == 0 {
		return segments, nil
	}
	if err := o.store.DeleteSegmentsByID(ctx, dropped); err != nil {
		return nil, err
	}

	logging.WithContext(ctx, o.logger).Info("filtered noise segments before translation",
		logging.Int("dropped", len(dropped)),
		logging.Int("kept", len(kept)),
	)
	return kept, nil
}

// likelyChineseSubtitle reports whether text has the character mix of a real
// Chinese subtitle line rather than OCR noise: mostly Han, with at most a
// small Latin/digit share.
func likelyChineseSubtitle(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	hanCount := textutil.CountHan(text)
	latinCount := 0
	digitCount := 0
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			latinCount++
		case unicode.IsDigit(r):
			digitCount++
		}
	}

	total := hanCount + latinCount + digitCount
	if total == 0 || hanCount == 0 {
		return false
	}

	hanRatio := float64(hanCount) / float64(total)
	latinRatio := float64(latinCount+digitCount) / float64(total)

	if total <= 2 {
		return hanRatio >= 0.5 && latinRatio <= 0.2
	}
	if hanRatio < 0.6 {
		return false
	}
	if latinRatio > 0.2 && hanRatio < 0.8 {
		return false
	}
	return true
}
