package subtitles

import (
	"testing"

	"subforge/internal/media/ffprobe"
)

func TestSelectStreamPrefersLanguageTag(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 2, Tags: ffprobe.StreamTags{Language: "eng"}},
		{Index: 3, Tags: ffprobe.StreamTags{Language: "jpn"}},
	}
	stream, ok := selectStream(streams, "ja", true)
	if !ok || stream.Index != 3 {
		t.Fatalf("expected stream 3, got %+v ok=%v", stream, ok)
	}
}

func TestSelectStreamChineseAliases(t *testing.T) {
	for _, lang := range []string{"zho", "chi", "zh-hans", "zh-CN", "cn"} {
		streams := []ffprobe.Stream{
			{Index: 1, Tags: ffprobe.StreamTags{Language: "eng"}},
			{Index: 2, Tags: ffprobe.StreamTags{Language: lang}},
		}
		stream, ok := selectStream(streams, "zh", false)
		if !ok || stream.Index != 2 {
			t.Fatalf("language %q: expected stream 2, got %+v ok=%v", lang, stream, ok)
		}
	}
}

func TestSelectStreamMatchesTitleWords(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 1, Tags: ffprobe.StreamTags{Title: "Signs & Songs"}},
		{Index: 2, Tags: ffprobe.StreamTags{Title: "Chinese (Traditional)"}},
	}
	stream, ok := selectStream(streams, "zh", false)
	if !ok || stream.Index != 2 {
		t.Fatalf("expected title match on stream 2, got %+v ok=%v", stream, ok)
	}
}

func TestSelectStreamFallback(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 1, Tags: ffprobe.StreamTags{Language: "eng"}},
	}
	if _, ok := selectStream(streams, "ja", false); ok {
		t.Fatal("expected no match without fallback")
	}
	stream, ok := selectStream(streams, "ja", true)
	if !ok || stream.Index != 1 {
		t.Fatalf("expected fallback to first stream, got %+v ok=%v", stream, ok)
	}
}

func TestBaseOfCanonicalizes(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"jpn", "ja"},
		{"zh-Hans", "zh"},
		{"ko", "ko"},
		{"not a tag!", "not a tag!"},
	}
	for _, tt := range tests {
		if got := baseOf(tt.code); got != tt.want {
			t.Errorf("baseOf(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
