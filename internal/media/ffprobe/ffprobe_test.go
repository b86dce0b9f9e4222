package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
			{CodecType: "subtitle", Index: 3, Tags: StreamTags{Language: "jpn"}},
		},
		Format: Format{
			Duration: "123.45",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	subs := result.SubtitleStreams()
	if len(subs) != 1 || subs[0].Index != 3 {
		t.Fatalf("unexpected subtitle streams: %+v", subs)
	}
	w, h := result.VideoDimensions()
	if w != 1920 || h != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d", w, h)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestParse(t *testing.T) {
	payload := `{
		"streams": [
			{"index": 2, "codec_type": "subtitle", "codec_name": "subrip",
			 "tags": {"language": "zho", "title": "Chinese (Simplified)"}}
		],
		"format": {"duration": "60.0", "nb_streams": 3}
	}`
	result, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	subs := result.SubtitleStreams()
	if len(subs) != 1 {
		t.Fatalf("expected 1 subtitle stream, got %d", len(subs))
	}
	if subs[0].Tags.Language != "zho" || subs[0].Tags.Title != "Chinese (Simplified)" {
		t.Fatalf("unexpected tags: %+v", subs[0].Tags)
	}
	if result.Format.NBStreams != 3 {
		t.Fatalf("unexpected stream count: %d", result.Format.NBStreams)
	}
}

func TestParseInvalidNumbersAreZero(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if w, h := result.VideoDimensions(); w != 0 || h != 0 {
		t.Fatalf("expected zero dimensions, got %dx%d", w, h)
	}
}
