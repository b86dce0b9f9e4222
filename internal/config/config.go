package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir    string `toml:"scratch_dir"`
	LogDir        string `toml:"log_dir"`
	StorageDir    string `toml:"storage_dir"`
	StoragePrefix string `toml:"storage_prefix"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Silence contains silence-detection parameters passed to ffmpeg.
type Silence struct {
	MinSeconds float64 `toml:"min_seconds"`
	Noise      string  `toml:"noise"`
}

// Chunk contains audio chunk planning parameters.
type Chunk struct {
	MinSeconds     float64 `toml:"min_seconds"`
	MaxSeconds     float64 `toml:"max_seconds"`
	OverlapSeconds float64 `toml:"overlap_seconds"`
}

// Subtitle contains cue formatting constraints and subtitle-source selection.
type Subtitle struct {
	MaxCharsPerLine       int     `toml:"max_chars_per_line"`
	MaxLines              int     `toml:"max_lines"`
	MinDuration           float64 `toml:"min_duration"`
	MaxDuration           float64 `toml:"max_duration"`
	MaxCharsPerSecond     float64 `toml:"max_chars_per_second"`
	GapSeconds            float64 `toml:"gap_seconds"`
	Source                string  `toml:"source"`
	FallbackToFirstStream bool    `toml:"fallback_to_first_stream"`
}

// OCRSecondPass holds crop overrides for an optional second OCR pass.
// A zero ratio inherits the primary crop value.
type OCRSecondPass struct {
	Enabled            bool    `toml:"enabled"`
	WidthRatio         float64 `toml:"width_ratio"`
	HeightRatio        float64 `toml:"height_ratio"`
	BottomPaddingRatio float64 `toml:"bottom_padding_ratio"`
}

// OCR contains burned-in subtitle extraction parameters.
type OCR struct {
	Enabled             bool          `toml:"enabled"`
	Language            string        `toml:"language"`
	PSM                 int           `toml:"psm"`
	OEM                 int           `toml:"oem"`
	FPS                 float64       `toml:"fps"`
	Scale               int           `toml:"scale"`
	MinChars            int           `toml:"min_chars"`
	MinConfidence       int           `toml:"min_confidence"`
	CropWidthRatio      float64       `toml:"crop_width_ratio"`
	CropHeightRatio     float64       `toml:"crop_height_ratio"`
	CropBottomPadding   float64       `toml:"crop_bottom_padding_ratio"`
	ExtraFilters        string        `toml:"extra_filters"`
	LogEvery            int           `toml:"log_every"`
	MinLineConfidence   int           `toml:"min_line_confidence"`
	MinLineHeightRatio  float64       `toml:"min_line_height_ratio"`
	MinLineBottomRatio  float64       `toml:"min_line_bottom_ratio"`
	SimilarityThreshold float64       `toml:"similarity_threshold"`
	MinSegmentSeconds   float64       `toml:"min_segment_seconds"`
	MaxBlankSeconds     float64       `toml:"max_blank_seconds"`
	MergeGapSeconds     float64       `toml:"merge_gap_seconds"`
	SecondPass          OCRSecondPass `toml:"second_pass"`
}

// Language describes one supported source language, including the source
// codes each translation provider expects for it.
type Language struct {
	Name        string            `toml:"name"`
	Translation map[string]string `toml:"translation"`
}

// Languages contains the source-language allow-list.
type Languages struct {
	Default   string              `toml:"default"`
	Supported map[string]Language `toml:"supported"`
}

// Download contains retrieval parameters for pulling media out of storage.
type Download struct {
	MaxAttempts          int `toml:"max_attempts"`
	BackoffSeconds       int `toml:"backoff_seconds"`
	MaxInMemoryMB        int `toml:"max_in_memory_mb"`
	ChunkBytes           int `toml:"chunk_bytes"`
	URLExpirationMinutes int `toml:"url_expiration_minutes"`
	HTTPTimeoutSeconds   int `toml:"http_timeout_seconds"`
}

// Whisper contains settings for the hosted transcription API.
type Whisper struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// WhisperCpp contains settings for the local whisper.cpp binary.
type WhisperCpp struct {
	Binary            string `toml:"binary"`
	Model             string `toml:"model"`
	Threads           int    `toml:"threads"`
	OutputFormat      string `toml:"output_format"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	BestOf            int    `toml:"best_of"`
	BeamSize          int    `toml:"beam_size"`
	SuppressNonSpeech bool   `toml:"suppress_non_speech"`
	NoGPU             bool   `toml:"no_gpu"`
}

// STT selects and configures the speech-to-text provider.
type STT struct {
	Driver     string     `toml:"driver"`
	Whisper    Whisper    `toml:"whisper"`
	WhisperCpp WhisperCpp `toml:"whisper_cpp"`
}

// DeepL contains settings for the DeepL translation API.
type DeepL struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Formality string `toml:"formality"`
}

// Azure contains settings for the Azure translation API.
type Azure struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Region        string `toml:"region"`
	APIVersion    string `toml:"api_version"`
	RetryDelaysMS []int  `toml:"retry_delays_ms"`
}

// Translation selects and configures the translation provider.
type Translation struct {
	Driver     string `toml:"driver"`
	Target     string `toml:"target"`
	BatchSize  int    `toml:"batch_size"`
	ThrottleMS int    `toml:"throttle_ms"`
	DeepL      DeepL  `toml:"deepl"`
	Azure      Azure  `toml:"azure"`
}

// Pipeline contains orchestration timing and worker settings.
type Pipeline struct {
	Workers                 int    `toml:"workers"`
	StopAfter               string `toml:"stop_after"`
	StartTimeoutSeconds     int    `toml:"start_timeout_seconds"`
	ChunkTimeoutSeconds     int    `toml:"chunk_timeout_seconds"`
	TranslateTimeoutSeconds int    `toml:"translate_timeout_seconds"`
	FinalizeTimeoutSeconds  int    `toml:"finalize_timeout_seconds"`
	ProcessTimeoutSeconds   int    `toml:"process_timeout_seconds"`
}

// Config encapsulates all configuration values for subforge.
//
// Configuration sections by subsystem:
//   - Paths: scratch, log, and storage directories
//   - Logging: log format and level
//   - Silence/Chunk: silence detection and chunk planning
//   - Subtitle: cue formatting constraints and subtitle-source selection
//   - OCR: burned-in subtitle extraction
//   - Languages: source-language allow-list and provider code mapping
//   - Download: storage retrieval behavior
//   - STT/Translation: provider drivers and credentials
//   - Pipeline: worker count, stop-after selector, per-stage timeouts
type Config struct {
	Paths       Paths       `toml:"paths"`
	Logging     Logging     `toml:"logging"`
	Silence     Silence     `toml:"silence"`
	Chunk       Chunk       `toml:"chunk"`
	Subtitle    Subtitle    `toml:"subtitle"`
	OCR         OCR         `toml:"ocr"`
	Languages   Languages   `toml:"language"`
	Download    Download    `toml:"download"`
	STT         STT         `toml:"stt"`
	Translation Translation `toml:"translation"`
	Pipeline    Pipeline    `toml:"pipeline"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir, c.Paths.StorageDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TesseractBinary returns the tesseract executable name used for OCR.
func (c *Config) TesseractBinary() string {
	return "tesseract"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
