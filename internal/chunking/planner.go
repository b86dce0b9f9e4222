package chunking

import (
	"math"
	"sort"
)

// Span is one planned chunk of source audio. Start includes the overlap;
// sequence numbering starts at zero.
type Span struct {
	Sequence int
	Start    float64
	End      float64
}

// Plan divides [0, duration) into chunks between minSeconds and maxSeconds
// long. Each chunk ends at the latest silence end inside its window when one
// exists, otherwise at the window's hard ceiling. A tail shorter than
// minSeconds is absorbed into the final chunk. Every chunk after the first
// reaches back overlapSeconds.
func Plan(duration float64, silences []SilenceInterval, minSeconds, maxSeconds, overlapSeconds float64) []Span {
	silenceEnds := make([]float64, 0, len(silences))
	for _, silence := range silences {
		silenceEnds = append(silenceEnds, silence.End)
	}
	sort.Float64s(silenceEnds)

	var chunks []Span
	baseStart := 0.0
	sequence := 0

	for baseStart < duration {
		minEnd := baseStart + minSeconds
		maxEnd := math.Min(baseStart+maxSeconds, duration)

		baseEnd := maxEnd
		for _, silenceEnd := range silenceEnds {
			if silenceEnd < minEnd {
				continue
			}
			if silenceEnd > maxEnd {
				break
			}
			baseEnd = silenceEnd
		}

		if duration-baseEnd < minSeconds {
			baseEnd = duration
		}

		chunkStart := 0.0
		if sequence > 0 {
			chunkStart = math.Max(0, baseStart-overlapSeconds)
		}

		chunks = append(chunks, Span{
			Sequence: sequence,
			Start:    round3(chunkStart),
			End:      round3(baseEnd),
		})
		sequence++

		if baseEnd >= duration {
			break
		}
		baseStart = baseEnd
	}

	return chunks
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}
