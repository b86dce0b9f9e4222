package subtitles

import (
	"regexp"
	"strings"

	"subforge/internal/textutil"
)

var (
	timeLinePattern = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})`)
	blockSplit      = regexp.MustCompile(`\r?\n(?:\r?\n)+`)
	lineSplit       = regexp.MustCompile(`\r?\n`)
	markupTag       = regexp.MustCompile(`<[^>]*>`)
)

// ParseSRT reads an SRT document into segments. Blocks without a parseable
// timing line and blocks whose text is empty after markup stripping are
// skipped rather than treated as errors: external tools emit messy SRT.
func ParseSRT(content string) []Segment {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var segments []Segment
	for _, block := range blockSplit.Split(content, -1) {
		lines := lineSplit.Split(strings.TrimSpace(block), -1)

		timeLineIndex := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timeLineIndex = i
				break
			}
		}
		if timeLineIndex < 0 {
			continue
		}

		matches := timeLinePattern.FindStringSubmatch(lines[timeLineIndex])
		if matches == nil {
			continue
		}
		start, err := ParseTimestamp(matches[1])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(matches[2])
		if err != nil {
			continue
		}

		text := strings.Join(lines[timeLineIndex+1:], " ")
		text = markupTag.ReplaceAllString(text, "")
		text = strings.TrimSpace(textutil.SanitizeUTF8(text))
		if text == "" {
			continue
		}

		segments = append(segments, Segment{Start: start, End: end, Text: text})
	}
	return segments
}
