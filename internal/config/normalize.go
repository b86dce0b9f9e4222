package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeSubtitle()
	c.normalizeOCR()
	c.normalizeLanguages()
	c.normalizeSTT()
	c.normalizeTranslation()
	c.normalizePipeline()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	c.Paths.StoragePrefix = strings.Trim(strings.TrimSpace(c.Paths.StoragePrefix), "/")
	if c.Paths.StoragePrefix == "" {
		c.Paths.StoragePrefix = defaultStoragePrefix
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSubtitle() {
	c.Subtitle.Source = strings.ToLower(strings.TrimSpace(c.Subtitle.Source))
	if c.Subtitle.Source == "" {
		c.Subtitle.Source = "auto"
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.FPS <= 0 {
		c.OCR.FPS = defaultOCRFPS
	}
	if c.OCR.Scale < 1 {
		c.OCR.Scale = 1
	}
	if c.OCR.LogEvery < 1 {
		c.OCR.LogEvery = 1
	}
	if c.OCR.MergeGapSeconds <= 0 {
		c.OCR.MergeGapSeconds = c.Subtitle.GapSeconds
	}
}

func (c *Config) normalizeLanguages() {
	c.Languages.Default = strings.ToLower(strings.TrimSpace(c.Languages.Default))
	if c.Languages.Default == "" {
		c.Languages.Default = "ja"
	}
	normalized := make(map[string]Language, len(c.Languages.Supported))
	for code, lang := range c.Languages.Supported {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		normalized[code] = lang
	}
	c.Languages.Supported = normalized
}

func (c *Config) normalizeSTT() {
	c.STT.Driver = strings.ToLower(strings.TrimSpace(c.STT.Driver))
	if c.STT.Driver == "" {
		c.STT.Driver = defaultSTTDriver
	}
	if c.STT.Whisper.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.STT.Whisper.APIKey = strings.TrimSpace(value)
		}
	}
	c.STT.Whisper.BaseURL = strings.TrimRight(strings.TrimSpace(c.STT.Whisper.BaseURL), "/")
	if c.STT.Whisper.BaseURL == "" {
		c.STT.Whisper.BaseURL = defaultWhisperBaseURL
	}
	if strings.TrimSpace(c.STT.Whisper.Model) == "" {
		c.STT.Whisper.Model = defaultWhisperModel
	}
	c.STT.WhisperCpp.OutputFormat = strings.ToLower(strings.TrimSpace(c.STT.WhisperCpp.OutputFormat))
	if c.STT.WhisperCpp.OutputFormat == "" {
		c.STT.WhisperCpp.OutputFormat = defaultWhisperCppFormat
	}
	if c.STT.WhisperCpp.TimeoutSeconds <= 0 {
		c.STT.WhisperCpp.TimeoutSeconds = defaultWhisperCppTimeout
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.Driver = strings.ToLower(strings.TrimSpace(c.Translation.Driver))
	if c.Translation.Driver == "" {
		c.Translation.Driver = defaultTranslationDriver
	}
	c.Translation.Target = strings.ToLower(strings.TrimSpace(c.Translation.Target))
	if c.Translation.Target == "" {
		c.Translation.Target = defaultTranslationTarget
	}
	if c.Translation.BatchSize <= 0 {
		c.Translation.BatchSize = defaultTranslationBatch
	}
	if c.Translation.DeepL.APIKey == "" {
		if value, ok := os.LookupEnv("DEEPL_API_KEY"); ok {
			c.Translation.DeepL.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translation.DeepL.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.DeepL.BaseURL), "/")
	if c.Translation.DeepL.BaseURL == "" {
		c.Translation.DeepL.BaseURL = defaultDeepLBaseURL
	}
	if c.Translation.Azure.APIKey == "" {
		if value, ok := os.LookupEnv("AZURE_TRANSLATOR_KEY"); ok {
			c.Translation.Azure.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translation.Azure.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.Azure.BaseURL), "/")
	if c.Translation.Azure.BaseURL == "" {
		c.Translation.Azure.BaseURL = defaultAzureBaseURL
	}
	if strings.TrimSpace(c.Translation.Azure.APIVersion) == "" {
		c.Translation.Azure.APIVersion = defaultAzureAPIVersion
	}
	if len(c.Translation.Azure.RetryDelaysMS) == 0 {
		c.Translation.Azure.RetryDelaysMS = []int{1000, 2000, 4000, 8000}
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.StopAfter = strings.ToLower(strings.TrimSpace(c.Pipeline.StopAfter))
	if c.Pipeline.StopAfter == "" {
		c.Pipeline.StopAfter = defaultStopAfter
	}
	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = defaultPipelineWorkers
	}
	if c.Pipeline.StartTimeoutSeconds <= 0 {
		c.Pipeline.StartTimeoutSeconds = defaultStartTimeoutSecs
	}
	if c.Pipeline.ChunkTimeoutSeconds <= 0 {
		c.Pipeline.ChunkTimeoutSeconds = defaultChunkTimeoutSecs
	}
	if c.Pipeline.TranslateTimeoutSeconds <= 0 {
		c.Pipeline.TranslateTimeoutSeconds = defaultTranslateTimeoutSecs
	}
	if c.Pipeline.FinalizeTimeoutSeconds <= 0 {
		c.Pipeline.FinalizeTimeoutSeconds = defaultFinalizeTimeoutSecs
	}
	if c.Pipeline.ProcessTimeoutSeconds <= 0 {
		c.Pipeline.ProcessTimeoutSeconds = defaultProcessTimeoutSecs
	}
}
