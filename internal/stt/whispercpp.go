package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/subtitles"
	"subforge/internal/textutil"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// WhisperCppRunner shells out to a local whisper.cpp binary.
type WhisperCppRunner struct {
	cfg    config.WhisperCpp
	logger *slog.Logger
	run    commandRunner
}

// NewWhisperCppRunner constructs a runner for the configured binary and model.
func NewWhisperCppRunner(cfg config.WhisperCpp, logger *slog.Logger) *WhisperCppRunner {
	return &WhisperCppRunner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisper-cpp"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (r *WhisperCppRunner) WithCommandRunner(run commandRunner) {
	if r != nil && run != nil {
		r.run = run
	}
}

// Transcribe runs whisper.cpp over the audio file and parses whichever output
// artifact it produced: a sidecar .srt/.json next to the audio, or stdout.
func (r *WhisperCppRunner) Transcribe(ctx context.Context, audioPath, language string) ([]subtitles.Segment, error) {
	if r.cfg.Binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper-cpp", "missing binary path", nil)
	}
	if r.cfg.Model == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper-cpp", "missing model path", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcribe", "whisper-cpp", "audio file not found", err)
	}

	format := strings.ToLower(r.cfg.OutputFormat)
	if format != "srt" && format != "json" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper-cpp",
			fmt.Sprintf("unsupported output format %q", r.cfg.OutputFormat), nil)
	}

	args := r.buildArgs(audioPath, language, format)
	r.logger.Debug("running whisper.cpp",
		logging.String("audio_path", audioPath),
		logging.String("format", format),
	)

	stdout, err := r.run(ctx, r.cfg.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp: %w: %s", err, strings.TrimSpace(string(stdout)))
	}
	defer r.cleanupOutputs(audioPath, format)

	output := r.readOutput(audioPath, format)
	if output == "" {
		output = strings.TrimSpace(string(stdout))
	}
	if output == "" {
		return nil, fmt.Errorf("whisper.cpp returned no output")
	}

	if format == "json" {
		return parseWhisperCppJSON(output)
	}
	return subtitles.ParseSRT(output), nil
}

func (r *WhisperCppRunner) buildArgs(audioPath, language, format string) []string {
	args := []string{"-m", r.cfg.Model, "-f", audioPath}
	if strings.TrimSpace(language) != "" {
		args = append(args, "-l", language)
	}
	if r.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(r.cfg.Threads))
	}
	if r.cfg.BestOf > 0 {
		args = append(args, "-bo", strconv.Itoa(r.cfg.BestOf))
	}
	if r.cfg.BeamSize > 0 {
		args = append(args, "-bs", strconv.Itoa(r.cfg.BeamSize))
	}
	if r.cfg.SuppressNonSpeech {
		args = append(args, "-sns")
	}
	if r.cfg.NoGPU {
		args = append(args, "-ng")
	}
	if format == "json" {
		args = append(args, "--output-json")
	} else {
		args = append(args, "--output-srt")
	}
	return args
}

// outputCandidates lists where whisper.cpp may have written its output:
// some builds append the format to the full filename, others replace the
// extension.
func outputCandidates(audioPath, format string) []string {
	dir := filepath.Dir(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return []string{
		audioPath + "." + format,
		filepath.Join(dir, base+"."+format),
	}
}

func (r *WhisperCppRunner) readOutput(audioPath, format string) string {
	for _, path := range outputCandidates(audioPath, format) {
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data)
		}
	}
	return ""
}

func (r *WhisperCppRunner) cleanupOutputs(audioPath, format string) {
	for _, path := range outputCandidates(audioPath, format) {
		_ = os.Remove(path)
	}
}

func parseWhisperCppJSON(payload string) ([]subtitles.Segment, error) {
	var parsed struct {
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode whisper.cpp json: %w", err)
	}
	segments := make([]subtitles.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		text := textutil.SanitizeUTF8(strings.TrimSpace(s.Text))
		if text == "" {
			continue
		}
		segments = append(segments, subtitles.Segment{Start: s.Start, End: s.End, Text: text})
	}
	return segments, nil
}
