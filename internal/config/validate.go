package config

import (
	"fmt"
	"strings"
)

var (
	validLogFormats      = []string{"console", "json"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
	validSubtitleSources = []string{"auto", "ocr", "embedded", "audio"}
	validSTTDrivers      = []string{"whisper", "whisper_cpp"}
	validTranslators     = []string{"deepl", "azure"}
	validStopAfter       = []string{"", "chunks", "transcribe", "translate"}
)

// Validate reports the first configuration problem it finds. It runs after
// normalization, so string fields are already trimmed and lowercased.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateSubtitle(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateSTT(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	return c.validatePipeline()
}

func (c *Config) validateLogging() error {
	if !contains(validLogFormats, c.Logging.Format) {
		return oneOfError("logging.format", c.Logging.Format, validLogFormats)
	}
	if !contains(validLogLevels, c.Logging.Level) {
		return oneOfError("logging.level", c.Logging.Level, validLogLevels)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Silence.MinSeconds <= 0 {
		return fmt.Errorf("silence.min_seconds must be positive, got %v", c.Silence.MinSeconds)
	}
	if c.Chunk.MinSeconds <= 0 {
		return fmt.Errorf("chunk.min_seconds must be positive, got %v", c.Chunk.MinSeconds)
	}
	if c.Chunk.MaxSeconds <= c.Chunk.MinSeconds {
		return fmt.Errorf("chunk.max_seconds (%v) must exceed chunk.min_seconds (%v)",
			c.Chunk.MaxSeconds, c.Chunk.MinSeconds)
	}
	if c.Chunk.OverlapSeconds < 0 {
		return fmt.Errorf("chunk.overlap_seconds must not be negative, got %v", c.Chunk.OverlapSeconds)
	}
	if c.Chunk.OverlapSeconds >= c.Chunk.MinSeconds {
		return fmt.Errorf("chunk.overlap_seconds (%v) must be smaller than chunk.min_seconds (%v)",
			c.Chunk.OverlapSeconds, c.Chunk.MinSeconds)
	}
	return nil
}

func (c *Config) validateSubtitle() error {
	if c.Subtitle.MaxCharsPerLine < 1 {
		return fmt.Errorf("subtitle.max_chars_per_line must be at least 1, got %d", c.Subtitle.MaxCharsPerLine)
	}
	if c.Subtitle.MaxLines < 1 {
		return fmt.Errorf("subtitle.max_lines must be at least 1, got %d", c.Subtitle.MaxLines)
	}
	if c.Subtitle.MinDuration <= 0 {
		return fmt.Errorf("subtitle.min_duration must be positive, got %v", c.Subtitle.MinDuration)
	}
	if c.Subtitle.MaxDuration < c.Subtitle.MinDuration {
		return fmt.Errorf("subtitle.max_duration (%v) must be at least subtitle.min_duration (%v)",
			c.Subtitle.MaxDuration, c.Subtitle.MinDuration)
	}
	if c.Subtitle.MaxCharsPerSecond <= 0 {
		return fmt.Errorf("subtitle.max_chars_per_second must be positive, got %v", c.Subtitle.MaxCharsPerSecond)
	}
	if c.Subtitle.GapSeconds < 0 {
		return fmt.Errorf("subtitle.gap_seconds must not be negative, got %v", c.Subtitle.GapSeconds)
	}
	if !contains(validSubtitleSources, c.Subtitle.Source) {
		return oneOfError("subtitle.source", c.Subtitle.Source, validSubtitleSources)
	}
	return nil
}

func (c *Config) validateOCR() error {
	if !c.OCR.Enabled {
		return nil
	}
	for name, ratio := range map[string]float64{
		"ocr.crop_width_ratio":  c.OCR.CropWidthRatio,
		"ocr.crop_height_ratio": c.OCR.CropHeightRatio,
	} {
		if ratio <= 0 || ratio > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, ratio)
		}
	}
	if c.OCR.CropBottomPadding < 0 || c.OCR.CropBottomPadding >= 1 {
		return fmt.Errorf("ocr.crop_bottom_padding must be in [0, 1), got %v", c.OCR.CropBottomPadding)
	}
	if c.OCR.SimilarityThreshold < 0 || c.OCR.SimilarityThreshold > 100 {
		return fmt.Errorf("ocr.similarity_threshold must be in [0, 100], got %v", c.OCR.SimilarityThreshold)
	}
	if c.OCR.MinSegmentSeconds < 0 {
		return fmt.Errorf("ocr.min_segment_seconds must not be negative, got %v", c.OCR.MinSegmentSeconds)
	}
	if c.OCR.MaxBlankSeconds < 0 {
		return fmt.Errorf("ocr.max_blank_seconds must not be negative, got %v", c.OCR.MaxBlankSeconds)
	}
	if c.OCR.SecondPass.Enabled {
		for name, ratio := range map[string]float64{
			"ocr.second_pass.width_ratio":  c.OCR.SecondPass.WidthRatio,
			"ocr.second_pass.height_ratio": c.OCR.SecondPass.HeightRatio,
		} {
			if ratio <= 0 || ratio > 1 {
				return fmt.Errorf("%s must be in (0, 1], got %v", name, ratio)
			}
		}
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if len(c.Languages.Supported) == 0 {
		return fmt.Errorf("language.supported must list at least one source language")
	}
	if _, ok := c.Languages.Supported[c.Languages.Default]; !ok {
		return fmt.Errorf("language.default %q is not listed in language.supported", c.Languages.Default)
	}
	return nil
}

func (c *Config) validateSTT() error {
	if !contains(validSTTDrivers, c.STT.Driver) {
		return oneOfError("stt.driver", c.STT.Driver, validSTTDrivers)
	}
	if c.STT.Driver == "whisper_cpp" {
		if strings.TrimSpace(c.STT.WhisperCpp.Binary) == "" {
			return fmt.Errorf("stt.whisper_cpp.binary must be set when stt.driver is whisper_cpp")
		}
		if strings.TrimSpace(c.STT.WhisperCpp.Model) == "" {
			return fmt.Errorf("stt.whisper_cpp.model must point at a model file when stt.driver is whisper_cpp")
		}
		if c.STT.WhisperCpp.OutputFormat != "srt" && c.STT.WhisperCpp.OutputFormat != "json" {
			return oneOfError("stt.whisper_cpp.output_format", c.STT.WhisperCpp.OutputFormat, []string{"srt", "json"})
		}
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if !contains(validTranslators, c.Translation.Driver) {
		return oneOfError("translation.driver", c.Translation.Driver, validTranslators)
	}
	if c.Translation.ThrottleMS < 0 {
		return fmt.Errorf("translation.throttle_ms must not be negative, got %d", c.Translation.ThrottleMS)
	}
	for _, delay := range c.Translation.Azure.RetryDelaysMS {
		if delay <= 0 {
			return fmt.Errorf("translation.azure.retry_delays_ms entries must be positive, got %d", delay)
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if !contains(validStopAfter, c.Pipeline.StopAfter) {
		return oneOfError("pipeline.stop_after", c.Pipeline.StopAfter, validStopAfter[1:])
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func oneOfError(field, got string, allowed []string) error {
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), got)
}
