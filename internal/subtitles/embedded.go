package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"subforge/internal/logging"
	"subforge/internal/media/ffprobe"
)

// Extractor pulls text-subtitle streams out of source video containers.
type Extractor struct {
	FFmpegBinary          string
	FFprobeBinary         string
	FallbackToFirstStream bool

	logger *slog.Logger
}

// NewExtractor builds an Extractor. A nil logger disables logging.
func NewExtractor(ffmpegBinary, ffprobeBinary string, fallbackToFirst bool, logger *slog.Logger) *Extractor {
	return &Extractor{
		FFmpegBinary:          ffmpegBinary,
		FFprobeBinary:         ffprobeBinary,
		FallbackToFirstStream: fallbackToFirst,
		logger:                logging.NewComponentLogger(logger, "subtitle-extractor"),
	}
}

// Extract probes the container for subtitle streams, picks the one matching
// the preferred language, and converts it to segments. Returns (nil, nil)
// when the container has no usable subtitle stream; that is a normal outcome,
// not an error.
func (e *Extractor) Extract(ctx context.Context, inputPath, tempDir, preferredLanguage string) ([]Segment, error) {
	result, err := ffprobe.Inspect(ctx, e.FFprobeBinary, inputPath)
	if err != nil {
		return nil, fmt.Errorf("probe subtitle streams: %w", err)
	}

	streams := result.SubtitleStreams()
	if len(streams) == 0 {
		return nil, nil
	}

	stream, ok := selectStream(streams, preferredLanguage, e.FallbackToFirstStream)
	if !ok {
		e.logger.Debug("no subtitle stream matched preferred language",
			logging.String("language", preferredLanguage),
			logging.Int("streams", len(streams)))
		return nil, nil
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	outputPath := filepath.Join(tempDir, "embedded-subtitles.srt")
	defer os.Remove(outputPath)

	if err := e.extractStreamToSRT(ctx, inputPath, stream.Index, outputPath); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read extracted subtitles: %w", err)
	}
	if strings.TrimSpace(string(contents)) == "" {
		return nil, nil
	}

	segments := ParseSRT(string(contents))
	if len(segments) == 0 {
		return nil, nil
	}
	e.logger.Info("extracted embedded subtitles",
		logging.Int("stream_index", stream.Index),
		logging.String("stream_language", stream.Tags.Language),
		logging.Int("segments", len(segments)))
	return segments, nil
}

func (e *Extractor) extractStreamToSRT(ctx context.Context, inputPath string, streamIndex int, outputPath string) error {
	cmd := exec.CommandContext(ctx, e.FFmpegBinary,
		"-y",
		"-i", inputPath,
		"-map", "0:"+strconv.Itoa(streamIndex),
		"-c:s", "srt",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("extract subtitle stream %d: %w: %s", streamIndex, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func selectStream(streams []ffprobe.Stream, preferredLanguage string, fallbackToFirst bool) (ffprobe.Stream, bool) {
	if preferredLanguage != "" {
		for _, stream := range streams {
			if matchesLanguage(stream, preferredLanguage) {
				return stream, true
			}
		}
	}
	if fallbackToFirst && len(streams) > 0 {
		return streams[0], true
	}
	return ffprobe.Stream{}, false
}

func matchesLanguage(stream ffprobe.Stream, preferredLanguage string) bool {
	preferred := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(preferredLanguage)), "_", "-")
	if preferred == "" {
		return false
	}
	aliases := languageAliases(preferred)

	lang := strings.ReplaceAll(strings.ToLower(stream.Tags.Language), "_", "-")
	if lang != "" {
		for _, alias := range aliases {
			if lang == alias || strings.HasPrefix(lang, alias+"-") {
				return true
			}
		}
	}

	title := strings.ToLower(stream.Tags.Title)
	if title != "" {
		for _, alias := range aliases {
			if strings.Contains(title, alias) {
				return true
			}
		}
		if baseOf(preferred) == "zh" && strings.Contains(title, "chinese") {
			return true
		}
		if baseOf(preferred) == "ja" && strings.Contains(title, "japanese") {
			return true
		}
	}

	return false
}

// baseOf canonicalizes a language code to its base subtag, so "jpn" and
// "zh-Hans" resolve to "ja" and "zh". Unparseable codes pass through.
func baseOf(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return code
	}
	return base.String()
}

func languageAliases(preferred string) []string {
	switch baseOf(preferred) {
	case "zh":
		return []string{"zh", "zho", "chi", "zh-hans", "zh-hant", "zh-cn", "zh-tw", "cn"}
	case "ja":
		return []string{"ja", "jpn", "jp"}
	default:
		aliases := []string{preferred}
		if base := baseOf(preferred); base != preferred {
			aliases = append(aliases, base)
		}
		return aliases
	}
}
