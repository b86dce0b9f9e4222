package ocr

import (
	"testing"

	"subforge/internal/subtitles"
)

func TestMergeSegmentsCollapsesOverlappingPasses(t *testing.T) {
	primary := []subtitles.Segment{
		{Start: 0, End: 1, Text: "你好"},
		{Start: 3, End: 4, Text: "再见"},
	}
	secondary := []subtitles.Segment{
		{Start: 0.9, End: 1.4, Text: "你好"},
		{Start: 2.9, End: 4.2, Text: "再见"},
	}

	merged := MergeSegments(primary, secondary, 0.05, 90)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged segments, got %+v", merged)
	}
	if merged[0].Start != 0 || merged[0].End != 1.4 || merged[0].Text != "你好" {
		t.Fatalf("unexpected first segment: %+v", merged[0])
	}
	if merged[1].Start != 2.9 || merged[1].End != 4.2 || merged[1].Text != "再见" {
		t.Fatalf("unexpected second segment: %+v", merged[1])
	}
}

func TestMergeSegmentsKeepsDissimilarOverlaps(t *testing.T) {
	primary := []subtitles.Segment{{Start: 0, End: 2, Text: "全然違う話"}}
	secondary := []subtitles.Segment{{Start: 1.5, End: 3, Text: "別のセリフ"}}

	merged := MergeSegments(primary, secondary, 0.05, 90)
	if len(merged) != 2 {
		t.Fatalf("dissimilar overlapping text must stay separate, got %+v", merged)
	}
}

func TestMergeSegmentsPrefersFullerReading(t *testing.T) {
	// The second pass read one more Han rune; the merged cue keeps it.
	primary := []subtitles.Segment{{Start: 0, End: 1, Text: "先生好"}}
	secondary := []subtitles.Segment{{Start: 0.5, End: 1.5, Text: "老先生好"}}

	merged := MergeSegments(primary, secondary, 0.05, 70)
	if len(merged) != 1 {
		t.Fatalf("expected merge, got %+v", merged)
	}
	if merged[0].Text != "老先生好" {
		t.Fatalf("expected reading with more Han runes, got %q", merged[0].Text)
	}
}

func TestMergeSegmentsDropsEmptyAndInverted(t *testing.T) {
	primary := []subtitles.Segment{
		{Start: 0, End: 1, Text: "  "},
		{Start: 2, End: 2, Text: "点"},
		{Start: 3, End: 4, Text: "好"},
	}
	merged := MergeSegments(primary, []subtitles.Segment{{Start: 5, End: 6, Text: "了"}}, 0.05, 90)
	if len(merged) != 2 {
		t.Fatalf("expected empty and zero-length segments dropped, got %+v", merged)
	}
}

func TestMergeSegmentsEmptySecondaryReturnsPrimary(t *testing.T) {
	primary := []subtitles.Segment{{Start: 0, End: 1, Text: "你好"}}
	merged := MergeSegments(primary, nil, 0.05, 90)
	if len(merged) != 1 || merged[0].Text != "你好" {
		t.Fatalf("expected primary passthrough, got %+v", merged)
	}
}
