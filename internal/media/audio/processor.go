package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subforge/internal/logging"
)

// commandRunner executes an external command and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Processor wraps the ffmpeg invocations the pipeline needs: audio
// extraction, silence detection, and chunk cutting.
type Processor struct {
	FFmpegBinary  string
	FFprobeBinary string

	logger *slog.Logger
	run    commandRunner
}

// NewProcessor constructs an audio processor around the given binaries.
func NewProcessor(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Processor {
	return &Processor{
		FFmpegBinary:  ffmpegBinary,
		FFprobeBinary: ffprobeBinary,
		logger:        logging.NewComponentLogger(logger, "audio"),
		run:           defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (p *Processor) WithCommandRunner(r commandRunner) {
	if p != nil && r != nil {
		p.run = r
	}
}

// ProbeDuration returns the container duration of a media file in seconds.
func (p *Processor) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	output, err := p.run(ctx, p.FFprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nw=1:nk=1",
		inputPath,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w: %s", err, strings.TrimSpace(string(output)))
	}
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("probe duration: unexpected ffprobe output %q", strings.TrimSpace(string(output)))
	}
	return duration, nil
}

// ExtractAudio writes a mono 16 kHz WAV rendition of the input's audio track.
func (p *Processor) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	p.logger.Debug("extracting audio",
		logging.String("input", inputPath),
		logging.String("output", outputPath),
	)
	output, err := p.run(ctx, p.FFmpegBinary,
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("extract audio: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// DetectSilence runs ffmpeg's silencedetect filter over the audio file and
// returns the raw log output for parsing. ffmpeg reports silence intervals on
// stderr, so the combined output is returned as-is.
func (p *Processor) DetectSilence(ctx context.Context, audioPath string, minSeconds float64, noiseLevel string) (string, error) {
	filter := fmt.Sprintf("silencedetect=noise=%s:d=%g", noiseLevel, minSeconds)
	output, err := p.run(ctx, p.FFmpegBinary,
		"-i", audioPath,
		"-af", filter,
		"-f", "null",
		"-",
	)
	if err != nil {
		return "", fmt.Errorf("detect silence: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// CutChunk re-encodes a window of the audio file to its own mono 16 kHz WAV.
func (p *Processor) CutChunk(ctx context.Context, audioPath string, startSeconds, durationSeconds float64, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	p.logger.Debug("cutting chunk",
		logging.String("input", audioPath),
		logging.Float64("start_seconds", startSeconds),
		logging.Float64("duration_seconds", durationSeconds),
	)
	output, err := p.run(ctx, p.FFmpegBinary,
		"-y",
		"-ss", fmt.Sprintf("%.3f", startSeconds),
		"-t", fmt.Sprintf("%.3f", durationSeconds),
		"-i", audioPath,
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("cut chunk: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
