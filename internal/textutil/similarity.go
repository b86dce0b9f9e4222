package textutil

import (
	"strings"
	"unicode"
)

// NormalizeForComparison lowercases text and folds every run of
// non-alphanumeric runes into a single space, so punctuation and spacing
// differences between two readings of the same subtitle barely move their
// similarity score.
func NormalizeForComparison(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// NormalizeCompact lowercases text and drops every rune that is not a letter
// or digit, spacing included. OCR comparisons use this stricter form: frame
// captures of the same subtitle often differ only in phantom spacing.
func NormalizeCompact(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// RawSimilarityPercent scores two strings as-is, without normalization.
// Callers that pre-normalize (the OCR flow) use this directly.
func RawSimilarityPercent(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	common := commonChars(ra, rb)
	return float64(common) * 200 / float64(len(ra)+len(rb))
}

// SimilarityPercent scores how alike two strings are, from 0 to 100. Both
// inputs are normalized first; when normalization strips everything from both
// (pure punctuation), the raw trimmed strings decide equality.
func SimilarityPercent(a, b string) float64 {
	na := NormalizeForComparison(a)
	nb := NormalizeForComparison(b)
	if na == "" && nb == "" {
		if strings.TrimSpace(a) == strings.TrimSpace(b) {
			return 100
		}
		return 0
	}
	if na == "" || nb == "" {
		return 0
	}
	return RawSimilarityPercent(na, nb)
}

// commonChars counts matching characters by repeatedly carving out the longest
// common substring and recursing into the pieces on either side of it.
func commonChars(a, b []rune) int {
	pos1, pos2, max := longestCommonSubstring(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if pos1 > 0 && pos2 > 0 {
		sum += commonChars(a[:pos1], b[:pos2])
	}
	if pos1+max < len(a) && pos2+max < len(b) {
		sum += commonChars(a[pos1+max:], b[pos2+max:])
	}
	return sum
}

func longestCommonSubstring(a, b []rune) (pos1, pos2, max int) {
	for i := range a {
		for j := range b {
			length := 0
			for i+length < len(a) && j+length < len(b) && a[i+length] == b[j+length] {
				length++
			}
			if length > max {
				pos1, pos2, max = i, j, length
			}
		}
	}
	return pos1, pos2, max
}
