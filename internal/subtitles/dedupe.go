package subtitles

import (
	"math"
	"sort"

	"subforge/internal/textutil"
)

// DefaultOverlapTolerance is the slack, in seconds, allowed between adjacent
// cues before they count as overlapping.
const DefaultOverlapTolerance = 0.05

const duplicateSimilarityPercent = 85.0

// Deduplicate removes cues that chunk overlap produced twice. Input order does
// not matter; output is sorted by start time. A cue overlapping its
// predecessor is dropped when its text is near-identical, otherwise its start
// is clipped to just after the predecessor; cues inverted by clipping are
// dropped too.
func Deduplicate(cues []Cue, tolerance float64) []Cue {
	_, results := DeduplicateIndices(cues, tolerance)
	return results
}

// DeduplicateIndices is Deduplicate with provenance: for every surviving cue
// it also reports the index of the input cue it came from, so callers holding
// records alongside the cues can tell which ones were dropped.
func DeduplicateIndices(cues []Cue, tolerance float64) ([]int, []Cue) {
	order := make([]int, len(cues))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return cues[order[i]].Start < cues[order[j]].Start
	})

	var kept []int
	var results []Cue
	for _, idx := range order {
		cue := cues[idx]
		if cue.End <= cue.Start {
			continue
		}
		if len(results) == 0 {
			kept = append(kept, idx)
			results = append(results, cue)
			continue
		}

		last := results[len(results)-1]
		if cue.Start <= last.End-tolerance {
			if isDuplicateText(last.Text, cue.Text) {
				continue
			}
			cue.Start = math.Max(cue.Start, last.End+tolerance)
			if cue.Start >= cue.End {
				continue
			}
		}
		kept = append(kept, idx)
		results = append(results, cue)
	}
	return kept, results
}

func isDuplicateText(left, right string) bool {
	leftNorm := textutil.NormalizeForComparison(left)
	rightNorm := textutil.NormalizeForComparison(right)
	if leftNorm == "" || rightNorm == "" {
		return false
	}
	if leftNorm == rightNorm {
		return true
	}
	return textutil.SimilarityPercent(left, right) >= duplicateSimilarityPercent
}
