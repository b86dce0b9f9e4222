package ocr

import (
	"sort"
	"strings"

	"subforge/internal/subtitles"
	"subforge/internal/textutil"
)

// MergeSegments combines the output of two OCR passes. Segments that overlap
// (within gapTolerance) and read similarly collapse into one spanning both,
// keeping whichever text looks more complete. Everything else is interleaved
// in time order.
func MergeSegments(primary, secondary []subtitles.Segment, gapTolerance, similarityThreshold float64) []subtitles.Segment {
	if len(secondary) == 0 {
		return primary
	}

	combined := make([]subtitles.Segment, 0, len(primary)+len(secondary))
	combined = append(combined, primary...)
	combined = append(combined, secondary...)
	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Start != combined[j].Start {
			return combined[i].Start < combined[j].Start
		}
		return combined[i].End < combined[j].End
	})

	var merged []subtitles.Segment
	for _, segment := range combined {
		text := strings.TrimSpace(segment.Text)
		if text == "" || segment.End <= segment.Start {
			continue
		}
		current := subtitles.Segment{Start: segment.Start, End: segment.End, Text: text}

		if len(merged) == 0 {
			merged = append(merged, current)
			continue
		}

		last := &merged[len(merged)-1]
		overlaps := current.Start <= last.End+gapTolerance
		if overlaps && similarOCRText(last.Text, current.Text, similarityThreshold) {
			if current.End > last.End {
				last.End = current.End
			}
			last.Text = textutil.PreferText(last.Text, current.Text)
			continue
		}
		merged = append(merged, current)
	}
	return merged
}

func similarOCRText(left, right string, threshold float64) bool {
	ln := textutil.NormalizeCompact(left)
	rn := textutil.NormalizeCompact(right)
	if ln == "" || rn == "" {
		return false
	}
	if ln == rn {
		return true
	}
	return textutil.RawSimilarityPercent(ln, rn) >= threshold
}
