package subtitles

import (
	"math"
	"strings"

	"subforge/internal/config"
)

// Formatter shapes raw segments into cues that respect reading-speed and
// layout constraints.
type Formatter struct {
	MaxCharsPerLine   int
	MaxLines          int
	MinDuration       float64
	MaxDuration       float64
	MaxCharsPerSecond float64
	GapSeconds        float64
}

// NewFormatter builds a Formatter from the subtitle configuration section.
func NewFormatter(cfg config.Subtitle) *Formatter {
	return &Formatter{
		MaxCharsPerLine:   cfg.MaxCharsPerLine,
		MaxLines:          cfg.MaxLines,
		MinDuration:       cfg.MinDuration,
		MaxDuration:       cfg.MaxDuration,
		MaxCharsPerSecond: cfg.MaxCharsPerSecond,
		GapSeconds:        cfg.GapSeconds,
	}
}

// Format walks segments in order, splitting each into however many cues its
// text requires, and keeps a cursor so consecutive cues never overlap. Cue
// times are rounded to the millisecond.
func (f *Formatter) Format(segments []Segment) []Cue {
	var formatted []Cue
	for _, group := range f.FormatGrouped(segments) {
		formatted = append(formatted, group...)
	}
	return formatted
}

// FormatGrouped formats like Format but keeps the cues of each input segment
// in their own slice, index-aligned with the input, so callers can carry
// per-segment data (such as the untranslated text) alongside the cues. A
// segment with blank text yields an empty group.
func (f *Formatter) FormatGrouped(segments []Segment) [][]Cue {
	grouped := make([][]Cue, len(segments))
	cursor := 0.0

	for i, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}

		duration := math.Max(0.01, segment.End-segment.Start)
		start := math.Max(segment.Start, cursor+f.GapSeconds)

		requiredDuration := math.Max(duration, f.requiredDuration(text))
		maxCharsPerPart := f.MaxCharsPerLine * f.MaxLines
		partsByLine := int(math.Max(1, math.Ceil(float64(runeLen(text))/float64(maxCharsPerPart))))
		partsByDuration := int(math.Max(1, math.Ceil(requiredDuration/f.MaxDuration)))
		parts := max(partsByLine, partsByDuration)

		targetDuration := math.Max(requiredDuration, float64(parts)*f.MinDuration)
		partDuration := targetDuration / float64(parts)

		if partDuration > f.MaxDuration {
			parts = int(math.Ceil(targetDuration / f.MaxDuration))
			partDuration = targetDuration / float64(parts)
		}

		partTexts := f.splitTextIntoParts(text, parts)
		parts = max(1, len(partTexts))
		partDuration = math.Max(f.MinDuration, targetDuration/float64(parts))

		// The word-boundary split can come back with fewer parts than
		// requested; if that pushes a part past the duration ceiling,
		// re-split once with the recomputed count.
		if partDuration > f.MaxDuration {
			parts = int(math.Ceil(targetDuration / f.MaxDuration))
			partTexts = f.splitTextIntoParts(text, parts)
			parts = max(1, len(partTexts))
			partDuration = math.Max(f.MinDuration, targetDuration/float64(parts))
		}

		// Durations are allocated proportionally to part length rather
		// than uniformly; a greedy word split can produce uneven parts,
		// and a uniform share would let a long part exceed the reading
		// speed limit.
		totalLen := 0
		for _, partText := range partTexts {
			totalLen += runeLen(partText)
		}
		partStart := start
		for _, partText := range partTexts {
			share := partDuration
			if totalLen > 0 {
				share = targetDuration * float64(runeLen(partText)) / float64(totalLen)
			}
			share = math.Max(f.MinDuration, math.Min(f.MaxDuration, share))
			partEnd := partStart + share

			grouped[i] = append(grouped[i], Cue{
				Start:   round3(partStart),
				End:     round3(partEnd),
				Text:    partText,
				Wrapped: f.wrapLines(partText),
			})
			cursor = partEnd
			partStart = partEnd
		}
	}

	return grouped
}

// WrapText wraps standalone text under the line constraints without any
// timing bookkeeping.
func (f *Formatter) WrapText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return f.wrapLines(text)
}

func (f *Formatter) requiredDuration(text string) float64 {
	length := runeLen(text)
	if length == 0 {
		return f.MinDuration
	}
	return math.Max(f.MinDuration, float64(length)/f.MaxCharsPerSecond)
}

func (f *Formatter) splitTextIntoParts(text string, parts int) []string {
	if parts <= 1 {
		return []string{text}
	}

	words := f.splitWords(text)
	targetLength := max(1, int(math.Ceil(float64(runeLen(text))/float64(parts))))
	var out []string
	current := ""

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if runeLen(candidate) <= targetLength || current == "" {
			current = candidate
			continue
		}
		out = append(out, current)
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func (f *Formatter) wrapLines(text string) string {
	words := f.splitWords(text)
	var lines []string
	current := ""

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if runeLen(candidate) <= f.MaxCharsPerLine {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
		if len(lines) >= f.MaxLines {
			current = ""
			break
		}
	}

	if current != "" && len(lines) < f.MaxLines {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		lines = append(lines, text)
	}
	if len(lines) > f.MaxLines {
		lines = lines[:f.MaxLines]
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) splitWords(text string) []string {
	raw := strings.Fields(text)
	words := make([]string, 0, len(raw))
	for _, word := range raw {
		if runeLen(word) <= f.MaxCharsPerLine {
			words = append(words, word)
			continue
		}
		words = append(words, f.splitLongWord(word)...)
	}
	return words
}

func (f *Formatter) splitLongWord(word string) []string {
	runes := []rune(word)
	var parts []string
	for offset := 0; offset < len(runes); offset += f.MaxCharsPerLine {
		end := min(offset+f.MaxCharsPerLine, len(runes))
		parts = append(parts, string(runes[offset:end]))
	}
	return parts
}

func runeLen(text string) int {
	return len([]rune(text))
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
