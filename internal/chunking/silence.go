package chunking

import (
	"regexp"
	"strconv"
	"strings"
)

// SilenceInterval is one detected span of silence in the source audio.
type SilenceInterval struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

var (
	silenceStartPattern = regexp.MustCompile(`silence_start:\s*(\d+(?:\.\d+)?)`)
	silenceEndPattern   = regexp.MustCompile(`silence_end:\s*(\d+(?:\.\d+)?)(?:\s*\|\s*silence_duration:\s*(\d+(?:\.\d+)?))?`)
)

// ParseSilence reads ffmpeg silencedetect log output into intervals, dropping
// intervals shorter than minDuration. A silence_end line with a reported
// duration but no preceding silence_start still yields an interval with the
// start reconstructed from the duration.
func ParseSilence(output string, minDuration float64) []SilenceInterval {
	var intervals []SilenceInterval
	currentStart := -1.0
	haveStart := false

	for _, line := range strings.Split(output, "\n") {
		if matches := silenceStartPattern.FindStringSubmatch(line); matches != nil {
			currentStart, _ = strconv.ParseFloat(matches[1], 64)
			haveStart = true
			continue
		}

		matches := silenceEndPattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		end, _ := strconv.ParseFloat(matches[1], 64)
		duration := -1.0
		haveDuration := false
		if matches[2] != "" {
			duration, _ = strconv.ParseFloat(matches[2], 64)
			haveDuration = true
		}
		if !haveDuration && haveStart {
			duration = end - currentStart
			haveDuration = true
		}

		if haveDuration && duration >= minDuration {
			start := currentStart
			if !haveStart {
				start = max(0, end-duration)
			}
			intervals = append(intervals, SilenceInterval{
				Start:    start,
				End:      end,
				Duration: duration,
			})
		}

		haveStart = false
	}

	return intervals
}
