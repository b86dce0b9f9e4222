package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/subtitles"
	"subforge/internal/textutil"
)

// ProgressFunc receives frame-level progress while an OCR pass runs.
type ProgressFunc func(frame, framesTotal int, percent float64)

// CropOverrides adjusts the crop window for a secondary pass. Nil fields keep
// the primary values.
type CropOverrides struct {
	WidthRatio         *float64
	HeightRatio        *float64
	BottomPaddingRatio *float64
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Extractor runs OCR passes over a video file.
type Extractor struct {
	FFmpegBinary    string
	TesseractBinary string

	cfg    config.OCR
	logger *slog.Logger
	run    commandRunner
}

// NewExtractor constructs an OCR extractor from the pipeline's OCR settings.
func NewExtractor(ffmpegBinary, tesseractBinary string, cfg config.OCR, logger *slog.Logger) *Extractor {
	return &Extractor{
		FFmpegBinary:    ffmpegBinary,
		TesseractBinary: tesseractBinary,
		cfg:             cfg,
		logger:          logging.NewComponentLogger(logger, "ocr"),
		run:             defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Extractor) WithCommandRunner(r commandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// WithCropOverrides returns a copy of the extractor with a different crop
// window, leaving the original untouched.
func (e *Extractor) WithCropOverrides(overrides CropOverrides) *Extractor {
	clone := *e
	if overrides.WidthRatio != nil {
		clone.cfg.CropWidthRatio = *overrides.WidthRatio
	}
	if overrides.HeightRatio != nil {
		clone.cfg.CropHeightRatio = *overrides.HeightRatio
	}
	if overrides.BottomPaddingRatio != nil {
		clone.cfg.CropBottomPadding = *overrides.BottomPaddingRatio
	}
	return &clone
}

// Extract samples frames from the video, OCRs each one, and collapses the
// per-frame readings into segments. It returns (nil, nil) when the video
// yields no frames or no legible subtitle text.
func (e *Extractor) Extract(ctx context.Context, inputPath, tempDir string, onProgress ProgressFunc) ([]subtitles.Segment, error) {
	framesDir := filepath.Join(tempDir, "ocr_frames")
	if err := os.RemoveAll(framesDir); err != nil {
		return nil, fmt.Errorf("clean frames directory: %w", err)
	}
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames directory: %w", err)
	}
	defer os.RemoveAll(framesDir)

	e.logger.Info("extracting frames",
		logging.Float64("fps", e.cfg.FPS),
		logging.Int("scale", e.cfg.Scale),
	)
	if err := e.extractFrames(ctx, inputPath, framesDir); err != nil {
		return nil, err
	}

	frames, err := listFrames(framesDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		e.logger.Warn("no frames extracted")
		return nil, nil
	}
	e.logger.Info("frames ready", logging.Int("frames_total", len(frames)))

	texts := make([]string, len(frames))
	logEvery := e.cfg.LogEvery
	if logEvery < 1 {
		logEvery = 1
	}
	for i, framePath := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.ocrFrame(ctx, framePath)
		if err != nil {
			return nil, err
		}
		texts[i] = text

		if (i+1)%logEvery == 0 {
			percent := round1(float64(i+1) / float64(len(frames)) * 100)
			e.logger.Info("progress",
				logging.Int("frame", i+1),
				logging.Int("frames_total", len(frames)),
				logging.Float64("progress_percent", percent),
			)
			if onProgress != nil {
				onProgress(i+1, len(frames), percent)
			}
		}
	}

	segments := e.collapse(texts)
	e.logger.Info("segments built", logging.Int("segments_total", len(segments)))
	if len(segments) == 0 {
		return nil, nil
	}
	return segments, nil
}

// collapse folds a run of per-frame OCR readings into segments. Consecutive
// frames with similar text extend the open segment; blank frames within the
// flicker tolerance are ignored, longer gaps close it.
func (e *Extractor) collapse(texts []string) []subtitles.Segment {
	fps := e.cfg.FPS
	if fps < 0.1 {
		fps = 0.1
	}
	frameDuration := 1 / fps

	var segments []subtitles.Segment
	var currentText, currentNormalized string
	var currentStart, lastSeen float64
	open := false

	flush := func(end float64) {
		if !open {
			return
		}
		if end-currentStart >= e.cfg.MinSegmentSeconds {
			segments = append(segments, subtitles.Segment{
				Start: round3(currentStart),
				End:   round3(end),
				Text:  currentText,
			})
		}
	}

	for i, raw := range texts {
		timestamp := float64(i) / fps
		text := textutil.SanitizeUTF8(strings.TrimSpace(raw))
		normalized := textutil.NormalizeCompact(text)

		if normalized == "" || len([]rune(normalized)) < e.cfg.MinChars {
			if open {
				if timestamp-lastSeen <= e.cfg.MaxBlankSeconds {
					continue
				}
				flush(lastSeen + frameDuration)
			}
			open = false
			continue
		}

		if !open {
			currentText, currentStart, currentNormalized = text, timestamp, normalized
			lastSeen = timestamp
			open = true
			continue
		}

		if currentNormalized == normalized || e.isSimilar(currentNormalized, normalized) {
			lastSeen = timestamp
			continue
		}

		flush(math.Max(timestamp, lastSeen+frameDuration))
		currentText, currentStart, currentNormalized = text, timestamp, normalized
		lastSeen = timestamp
	}

	flush(lastSeen + frameDuration)
	return segments
}

func (e *Extractor) isSimilar(current, next string) bool {
	if current == "" || next == "" {
		return false
	}
	if current == next {
		return true
	}
	return textutil.RawSimilarityPercent(current, next) >= e.cfg.SimilarityThreshold
}

func (e *Extractor) extractFrames(ctx context.Context, inputPath, framesDir string) error {
	output, err := e.run(ctx, e.FFmpegBinary,
		"-y",
		"-i", inputPath,
		"-vf", e.buildFilters(),
		"-q:v", "2",
		filepath.Join(framesDir, "frame_%06d.png"),
	)
	if err != nil {
		return fmt.Errorf("extract frames: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (e *Extractor) ocrFrame(ctx context.Context, framePath string) (string, error) {
	if _, err := os.Stat(framePath); err != nil {
		return "", nil
	}
	output, err := e.run(ctx, e.TesseractBinary,
		framePath,
		"stdout",
		"-l", e.cfg.Language,
		"--psm", fmt.Sprintf("%d", e.cfg.PSM),
		"--oem", fmt.Sprintf("%d", e.cfg.OEM),
		"tsv",
	)
	if err != nil {
		return "", fmt.Errorf("ocr frame %s: %w: %s", filepath.Base(framePath), err, strings.TrimSpace(string(output)))
	}
	return e.parseTSV(string(output)), nil
}

// buildFilters assembles the ffmpeg filter graph: sample rate, a crop window
// anchored to the bottom of the frame, and an upscale to help tesseract.
func (e *Extractor) buildFilters() string {
	fps := math.Max(0.1, e.cfg.FPS)
	widthRatio := clamp(e.cfg.CropWidthRatio, 0.1, 1.0)
	heightRatio := clamp(e.cfg.CropHeightRatio, 0.1, 1.0)
	bottomPadding := clamp(e.cfg.CropBottomPadding, 0.0, 0.3)
	scale := e.cfg.Scale
	if scale < 1 {
		scale = 1
	}

	x := fmt.Sprintf("(iw*(1-%0.4f)/2)", widthRatio)
	y := fmt.Sprintf("(ih-(ih*%0.4f)-(ih*%0.4f))", heightRatio, bottomPadding)
	filters := []string{
		fmt.Sprintf("fps=%0.3f", fps),
		fmt.Sprintf("crop=iw*%0.4f:ih*%0.4f:%s:%s", widthRatio, heightRatio, x, y),
		fmt.Sprintf("scale=iw*%d:ih*%d", scale, scale),
	}
	if extra := strings.TrimSpace(e.cfg.ExtraFilters); extra != "" {
		filters = append(filters, extra)
	}
	return strings.Join(filters, ",")
}

func listFrames(framesDir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(framesDir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
