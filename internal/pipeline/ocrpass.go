package pipeline

import (
	"context"
	"math"

	"subforge/internal/logging"
	"subforge/internal/ocr"
	"subforge/internal/queue"
	"subforge/internal/subtitles"
)

type ocrPass struct {
	overrides  ocr.CropOverrides
	overridden bool
}

// runOCRPasses extracts burned-in subtitles, running the optional second pass
// with its crop overrides and folding the pass results together with the
// merge gap tolerance. Returns nil segments when no pass found subtitles.
func (o *Orchestrator) runOCRPasses(ctx context.Context, job *queue.Job, sourceLocal, scratchDir string) ([]subtitles.Segment, error) {
	logger := logging.WithContext(ctx, o.logger)

	passes := o.resolveOCRPasses()
	passCount := len(passes)

	var primary []subtitles.Segment
	havePrimary := false
	var secondary [][]subtitles.Segment

	for index, pass := range passes {
		extractor := o.ocr
		if pass.overridden {
			extractor = o.ocr.WithCropOverrides(pass.overrides)
		}
		if index > 0 {
			logger.Info("running secondary OCR pass", logging.Int("pass", index+1))
		}

		segments, err := o.extractWithProgress(ctx, extractor, job, sourceLocal, scratchDir, index+1, passCount)
		if err != nil {
			return nil, err
		}
		if segments == nil {
			if index == 0 {
				break
			}
			logger.Warn("secondary OCR pass returned no subtitles", logging.Int("pass", index+1))
			continue
		}
		if !havePrimary {
			primary = segments
			havePrimary = true
		} else {
			secondary = append(secondary, segments)
		}
	}

	if !havePrimary {
		return nil, nil
	}

	merged := primary
	for _, segments := range secondary {
		merged = ocr.MergeSegments(merged, segments, o.cfg.OCR.MergeGapSeconds, o.cfg.OCR.SimilarityThreshold)
	}
	return merged, nil
}

// extractWithProgress runs one OCR pass while recording its progress events,
// scaled into the job-global percentage across all passes.
func (o *Orchestrator) extractWithProgress(ctx context.Context, extractor *ocr.Extractor, job *queue.Job, sourceLocal, scratchDir string, passIndex, passCount int) ([]subtitles.Segment, error) {
	stream := ocr.NewProgressStream(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range stream.Events() {
			o.recordOCRProgress(ctx, job, passIndex, passCount, event)
		}
	}()

	segments, err := extractor.Extract(ctx, sourceLocal, scratchDir, stream.Func())
	stream.Close()
	<-done
	return segments, err
}

// recordOCRProgress persists a progress event into job metadata. The recorded
// percentage only ever increases.
func (o *Orchestrator) recordOCRProgress(ctx context.Context, job *queue.Job, passIndex, passCount int, event ocr.Progress) {
	passCount = max(1, passCount)
	framesTotal := max(1, event.FramesTotal)

	globalFramesTotal := framesTotal * passCount
	globalFrame := (passIndex-1)*framesTotal + event.Frame
	globalPercent := float64(passIndex-1)*(100/float64(passCount)) + event.Percent/float64(passCount)

	percent := math.Round(math.Max(0, math.Min(100, globalPercent))*10) / 10
	if percent <= job.MetaFloat("subtitle_progress_percent") {
		return
	}

	job.SetMeta("subtitle_progress_percent", percent)
	job.SetMeta("subtitle_frames_total", globalFramesTotal)
	job.SetMeta("subtitle_frame", globalFrame)
	if err := o.store.Update(ctx, job); err != nil {
		o.logger.Warn("failed to record OCR progress",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

// resolveOCRPasses returns the primary pass plus the configured second pass
// when its crop differs from the primary crop. A zero override ratio inherits
// the primary value.
func (o *Orchestrator) resolveOCRPasses() []ocrPass {
	passes := []ocrPass{{}}

	second := o.cfg.OCR.SecondPass
	if !second.Enabled {
		return passes
	}
	if second.WidthRatio == 0 && second.HeightRatio == 0 && second.BottomPaddingRatio == 0 {
		return passes
	}

	width := second.WidthRatio
	if width == 0 {
		width = o.cfg.OCR.CropWidthRatio
	}
	height := second.HeightRatio
	if height == 0 {
		height = o.cfg.OCR.CropHeightRatio
	}
	bottom := second.BottomPaddingRatio
	if bottom == 0 {
		bottom = o.cfg.OCR.CropBottomPadding
	}
	if width == o.cfg.OCR.CropWidthRatio &&
		height == o.cfg.OCR.CropHeightRatio &&
		bottom == o.cfg.OCR.CropBottomPadding {
		return passes
	}

	overrides := ocr.CropOverrides{}
	if second.WidthRatio != 0 {
		value := second.WidthRatio
		overrides.WidthRatio = &value
	}
	if second.HeightRatio != 0 {
		value := second.HeightRatio
		overrides.HeightRatio = &value
	}
	if second.BottomPaddingRatio != 0 {
		value := second.BottomPaddingRatio
		overrides.BottomPaddingRatio = &value
	}
	return append(passes, ocrPass{overrides: overrides, overridden: true})
}
