package subtitles

import "testing"

func TestDeduplicateSeamDuplicates(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 2, Text: "Hello world"},
		{Start: 1.6, End: 3, Text: "Hello world"},
		{Start: 2.8, End: 4.2, Text: "Next line"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(got), got)
	}
	if got[0].Start != 0 || got[0].End != 2 || got[0].Text != "Hello world" {
		t.Fatalf("first cue changed: %+v", got[0])
	}
	if got[1].Text != "Next line" || got[1].Start < 2.0 {
		t.Fatalf("unexpected second cue: %+v", got[1])
	}
}

func TestDeduplicateClipsDissimilarOverlap(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 2, Text: "completely different text"},
		{Start: 1.5, End: 3, Text: "another sentence entirely"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(got))
	}
	if got[1].Start != 2.05 {
		t.Fatalf("expected clipped start 2.05, got %v", got[1].Start)
	}
}

func TestDeduplicateDropsInvertedAfterClip(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 3, Text: "long first cue text"},
		{Start: 1, End: 2.5, Text: "swallowed cue words"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 1 {
		t.Fatalf("expected contained cue to be dropped, got %d", len(got))
	}
}

func TestDeduplicateDropsZeroDuration(t *testing.T) {
	cues := []Cue{
		{Start: 1, End: 1, Text: "empty span"},
		{Start: 2, End: 3, Text: "real cue"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 1 || got[0].Text != "real cue" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestDeduplicateSortsInput(t *testing.T) {
	cues := []Cue{
		{Start: 5, End: 6, Text: "later"},
		{Start: 0, End: 1, Text: "earlier"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 2 || got[0].Text != "earlier" || got[1].Text != "later" {
		t.Fatalf("expected sorted output, got %+v", got)
	}
}

func TestDeduplicateNearIdenticalTextsCountAsDuplicates(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 2, Text: "今日はいい天気ですね"},
		{Start: 1.5, End: 3, Text: "今日はいい天汽ですね"},
	}
	got := Deduplicate(cues, DefaultOverlapTolerance)
	if len(got) != 1 {
		t.Fatalf("expected near-identical overlap to collapse, got %d", len(got))
	}
}

func TestDeduplicateIndicesTracksProvenance(t *testing.T) {
	cues := []Cue{
		{Start: 5, End: 7, Text: "Later line"},
		{Start: 0, End: 2, Text: "Hello world"},
		{Start: 1.6, End: 3, Text: "Hello world"},
	}
	indices, got := DeduplicateIndices(cues, DefaultOverlapTolerance)
	if len(got) != 2 || len(indices) != 2 {
		t.Fatalf("expected 2 survivors, got %d cues / %d indices", len(got), len(indices))
	}
	if indices[0] != 1 || indices[1] != 0 {
		t.Fatalf("indices = %v, want [1 0]", indices)
	}
	for i, idx := range indices {
		if cues[idx].Text != got[i].Text {
			t.Fatalf("index %d maps to %q, survivor has %q", idx, cues[idx].Text, got[i].Text)
		}
	}
}
