package textutil

import (
	"math"
	"testing"
)

func TestNormalizeForComparison(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"folds punctuation to space", "こんにちは、世界!", "こんにちは 世界"},
		{"collapses runs", "one -- two!!", "one two"},
		{"keeps digits", "第2話", "第2話"},
		{"empty", "", ""},
		{"only punctuation", "…!?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeForComparison(tt.input); got != tt.want {
				t.Errorf("NormalizeForComparison(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarityPercentIdentical(t *testing.T) {
	if got := SimilarityPercent("今日はいい天気", "今日はいい天気"); got != 100 {
		t.Errorf("identical strings = %v, want 100", got)
	}
}

func TestSimilarityPercentPunctuationBarelyMatters(t *testing.T) {
	got := SimilarityPercent("今日は、いい天気!", "今日はいい天気")
	if got < 90 || got >= 100 {
		t.Errorf("punctuation-only difference = %v, want in [90, 100)", got)
	}
	if got := SimilarityPercent("今日は、いい天気", "今日は、いい天気"); got != 100 {
		t.Errorf("identical punctuation = %v, want 100", got)
	}
}

func TestSimilarityPercentDisjoint(t *testing.T) {
	if got := SimilarityPercent("abc", "xyz"); got != 0 {
		t.Errorf("disjoint strings = %v, want 0", got)
	}
}

func TestSimilarityPercentPartial(t *testing.T) {
	// "world" is the longest common substring; loose runes on either side
	// contribute nothing here: 5 * 200 / (11 + 11).
	got := SimilarityPercent("hello world", "world peace")
	if math.Abs(got-1000.0/22) > 0.001 {
		t.Errorf("partial overlap = %v, want %v", got, 1000.0/22)
	}
}

func TestSimilarityPercentOneGlitchedRune(t *testing.T) {
	// A single misread character in an otherwise identical line should
	// still clear a 85-90 style threshold.
	got := SimilarityPercent("今日はいい天気ですね", "今日はいい天汽ですね")
	if got < 85 {
		t.Errorf("one glitched rune = %v, want >= 85", got)
	}
}

func TestSimilarityPercentSymmetric(t *testing.T) {
	a, b := "hello world program", "world program test"
	if SimilarityPercent(a, b) != SimilarityPercent(b, a) {
		t.Errorf("similarity not symmetric")
	}
}

func TestSimilarityPercentPunctuationOnlyInputs(t *testing.T) {
	if got := SimilarityPercent("!!!", "!!!"); got != 100 {
		t.Errorf("equal punctuation = %v, want 100", got)
	}
	if got := SimilarityPercent("!!!", "???"); got != 0 {
		t.Errorf("different punctuation = %v, want 0", got)
	}
	if got := SimilarityPercent("!!!", "hello"); got != 0 {
		t.Errorf("punctuation vs text = %v, want 0", got)
	}
}

func TestNormalizeCompact(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "helloworld"},
		{"こんにちは、 世界", "こんにちは世界"},
		{"  a b\tc  ", "abc"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeCompact(tc.in); got != tc.want {
			t.Errorf("NormalizeCompact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRawSimilarityPercent(t *testing.T) {
	if got := RawSimilarityPercent("abc", "abc"); got != 100 {
		t.Errorf("identical = %v, want 100", got)
	}
	if got := RawSimilarityPercent("", ""); got != 0 {
		t.Errorf("both empty = %v, want 0", got)
	}
	if got := RawSimilarityPercent("abcd", "xbcd"); got != 75 {
		// 3 common runes * 200 / 8
		t.Errorf("one differing rune = %v, want 75", got)
	}
}
