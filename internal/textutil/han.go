package textutil

import (
	"strings"
	"unicode"
)

// CountHan returns the number of Han (CJK ideograph) runes in text.
func CountHan(text string) int {
	count := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			count++
		}
	}
	return count
}

// HanRatio returns the share of non-space runes that are Han ideographs.
// Returns 0 for strings with no non-space runes.
func HanRatio(text string) float64 {
	total := 0
	han := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(han) / float64(total)
}

// PreferText picks the better of two readings of the same subtitle. More Han
// characters wins; on a tie the longer trimmed string wins, and on a full tie
// the first argument is kept.
func PreferText(a, b string) string {
	ta := strings.TrimSpace(a)
	tb := strings.TrimSpace(b)
	if ta == "" {
		return tb
	}
	if tb == "" {
		return ta
	}
	hanA := CountHan(ta)
	hanB := CountHan(tb)
	if hanB > hanA {
		return tb
	}
	if hanB == hanA && len([]rune(tb)) > len([]rune(ta)) {
		return tb
	}
	return ta
}
