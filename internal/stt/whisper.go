package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/subtitles"
	"subforge/internal/textutil"
)

// WhisperClient calls the hosted Whisper transcription API.
type WhisperClient struct {
	apiKey  string
	baseURL string
	model   string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewWhisperClient constructs a client for the configured Whisper endpoint.
func NewWhisperClient(cfg config.Whisper, logger *slog.Logger) *WhisperClient {
	return &WhisperClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     logging.NewComponentLogger(logger, "whisper"),
	}
}

// WithHTTPClient overrides the HTTP client, used by tests.
func (c *WhisperClient) WithHTTPClient(client *http.Client) {
	if c != nil && client != nil {
		c.httpClient = client
	}
}

type verboseTranscription struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and returns the segment timeline from the
// verbose JSON response. Segments with empty text are dropped.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath, language string) ([]subtitles.Segment, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "missing API key", nil)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	fields := map[string]string{
		"model":           c.model,
		"language":        language,
		"response_format": "verbose_json",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("build multipart request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("uploading chunk audio",
		logging.String("audio_path", audioPath),
		logging.String("language", language),
		logging.String("model", c.model),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed verboseTranscription
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
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
