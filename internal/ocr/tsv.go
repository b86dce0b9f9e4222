package ocr

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"subforge/internal/textutil"
)

// lineCandidate is one reassembled text line from a tesseract TSV page.
type lineCandidate struct {
	text          string
	left          int
	top           int
	right         int
	bottom        int
	height        int
	width         int
	avgConfidence float64
}

type lineAccumulator struct {
	words           []string
	left            int
	top             int
	right           int
	bottom          int
	confidenceTotal float64
	confidenceCount int
}

// parseTSV reassembles tesseract's word-level TSV output into lines, filters
// out noise, and returns the text of the best remaining line. Each filter is
// skipped when it would discard every candidate, so a weak but real reading
// still wins over nothing.
func (e *Extractor) parseTSV(tsv string) string {
	lines := strings.FieldsFunc(strings.TrimSpace(tsv), func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	if len(lines) == 0 {
		return ""
	}

	byKey := make(map[string]*lineAccumulator)
	var keys []string
	var pageWidth, pageHeight int

	for i, line := range lines {
		if i == 0 {
			continue
		}
		columns := strings.Split(line, "\t")
		if len(columns) < 12 {
			continue
		}

		level := atoi(columns[0])
		left := atoi(columns[6])
		top := atoi(columns[7])
		width := atoi(columns[8])
		height := atoi(columns[9])
		confidence := atof(columns[10])
		text := strings.TrimSpace(columns[11])

		if level == 1 && width > 0 && height > 0 {
			pageWidth, pageHeight = width, height
			continue
		}
		if level != 5 || atoi(columns[5]) <= 0 {
			continue
		}
		if confidence < float64(e.cfg.MinConfidence) || text == "" {
			continue
		}

		key := strings.Join(columns[1:5], "-")
		entry, ok := byKey[key]
		if !ok {
			entry = &lineAccumulator{
				left:   left,
				top:    top,
				right:  left + width,
				bottom: top + height,
			}
			byKey[key] = entry
			keys = append(keys, key)
		}
		entry.words = append(entry.words, text)
		entry.left = min(entry.left, left)
		entry.top = min(entry.top, top)
		entry.right = max(entry.right, left+width)
		entry.bottom = max(entry.bottom, top+height)
		entry.confidenceTotal += math.Max(0, confidence)
		entry.confidenceCount++
	}

	if len(byKey) == 0 {
		return ""
	}

	var candidates []lineCandidate
	maxHeight := 0
	for _, key := range keys {
		entry := byKey[key]
		text := textutil.SanitizeUTF8(strings.TrimSpace(strings.Join(entry.words, "")))
		if text == "" {
			continue
		}
		lineHeight := max(0, entry.bottom-entry.top)
		maxHeight = max(maxHeight, lineHeight)
		candidates = append(candidates, lineCandidate{
			text:          text,
			left:          entry.left,
			top:           entry.top,
			right:         entry.right,
			bottom:        entry.bottom,
			height:        lineHeight,
			width:         max(0, entry.right-entry.left),
			avgConfidence: entry.confidenceTotal / float64(max(1, entry.confidenceCount)),
		})
	}
	if len(candidates) == 0 {
		return ""
	}

	filtered := candidates
	if maxHeight > 0 {
		minHeight := float64(maxHeight) * clamp(e.cfg.MinLineHeightRatio, 0, 1)
		filtered = keepIf(filtered, func(c lineCandidate) bool {
			return float64(c.height) >= minHeight
		})
	}
	if pageHeight > 0 {
		minBottom := float64(pageHeight) * clamp(e.cfg.MinLineBottomRatio, 0, 1)
		filtered = keepIf(filtered, func(c lineCandidate) bool {
			return float64(c.bottom) >= minBottom
		})
	}
	filtered = keepIf(filtered, func(c lineCandidate) bool {
		return c.avgConfidence >= float64(e.cfg.MinLineConfidence)
	})

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.avgConfidence != b.avgConfidence {
			return a.avgConfidence > b.avgConfidence
		}
		if a.width != b.width {
			return a.width > b.width
		}
		aLen, bLen := len([]rune(a.text)), len([]rune(b.text))
		if aLen != bLen {
			return aLen > bLen
		}
		if pageWidth > 0 {
			center := float64(pageWidth) / 2
			return math.Abs(float64(a.left+a.right)/2-center) < math.Abs(float64(b.left+b.right)/2-center)
		}
		if pageHeight > 0 {
			return pageHeight-a.bottom < pageHeight-b.bottom
		}
		return false
	})

	return filtered[0].text
}

// keepIf filters candidates but falls back to the input when nothing passes.
func keepIf(candidates []lineCandidate, keep func(lineCandidate) bool) []lineCandidate {
	var kept []lineCandidate
	for _, c := range candidates {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return candidates
	}
	return kept
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func atof(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return -1
	}
	return v
}
