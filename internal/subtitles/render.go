package subtitles

import (
	"strconv"
	"strings"
)

// RenderSRT serializes cues as an SRT document with 1-based cue numbering.
func RenderSRT(cues []Cue) string {
	lines := make([]string, 0, len(cues)*4)
	for i, cue := range cues {
		lines = append(lines,
			strconv.Itoa(i+1),
			FormatTimestamp(cue.Start, ',')+" --> "+FormatTimestamp(cue.End, ','),
			cue.DisplayText(),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// RenderVTT serializes cues as a WebVTT document.
func RenderVTT(cues []Cue) string {
	lines := make([]string, 0, len(cues)*3+2)
	lines = append(lines, "WEBVTT", "")
	for _, cue := range cues {
		lines = append(lines,
			FormatTimestamp(cue.Start, '.')+" --> "+FormatTimestamp(cue.End, '.'),
			cue.DisplayText(),
			"",
		)
	}
	return strings.Join(lines, "\n")
}
