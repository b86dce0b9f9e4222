package stt

import (
	"context"
	"fmt"
	"log/slog"

	"subforge/internal/config"
	"subforge/internal/subtitles"
)

// Transcriber converts an audio file into timed text segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]subtitles.Segment, error)
}

// New returns the transcriber selected by the configuration.
func New(cfg config.STT, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Driver {
	case "whisper":
		return NewWhisperClient(cfg.Whisper, logger), nil
	case "whisper_cpp":
		return NewWhisperCppRunner(cfg.WhisperCpp, logger), nil
	default:
		return nil, fmt.Errorf("unsupported stt driver %q", cfg.Driver)
	}
}
