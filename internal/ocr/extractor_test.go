package ocr

import (
	"testing"

	"subforge/internal/config"
	"subforge/internal/logging"
)

func testExtractor(cfg config.OCR) *Extractor {
	return NewExtractor("ffmpeg", "tesseract", cfg, logging.NewNop())
}

func collapseConfig() config.OCR {
	return config.OCR{
		FPS:                 1,
		MinChars:            1,
		SimilarityThreshold: 90,
		MinSegmentSeconds:   0.5,
		MaxBlankSeconds:     1.0,
	}
}

func TestCollapseMergesStableFramesAcrossFlicker(t *testing.T) {
	e := testExtractor(collapseConfig())
	segments := e.collapse([]string{"你好", "你好", "", "", "再见", "再见"})
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segments)
	}
	if segments[0].Start != 0 || segments[0].End != 2 || segments[0].Text != "你好" {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].Start != 4 || segments[1].End != 6 || segments[1].Text != "再见" {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
}

func TestCollapseShortBlankGapKeepsSegmentOpen(t *testing.T) {
	e := testExtractor(collapseConfig())
	segments := e.collapse([]string{"你好", "", "你好", "你好"})
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %+v", segments)
	}
	if segments[0].Start != 0 || segments[0].End != 4 {
		t.Fatalf("unexpected span: %+v", segments[0])
	}
}

func TestCollapseTextChangeClosesSegment(t *testing.T) {
	e := testExtractor(collapseConfig())
	segments := e.collapse([]string{"おはよう", "こんばんは"})
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segments)
	}
	if segments[0].End != 1 {
		t.Fatalf("first segment should close at the change: %+v", segments[0])
	}
	if segments[1].Start != 1 || segments[1].End != 2 {
		t.Fatalf("unexpected second segment: %+v", segments[1])
	}
}

func TestCollapseSimilarReadingsExtendSegment(t *testing.T) {
	e := testExtractor(collapseConfig())
	// A one-rune OCR glitch in the middle frame should not split the segment.
	clean := "あいうえおかきくけこさしすせそたちつて"
	glitched := "あいうえおかきくけ干さしすせそたちつて"
	segments := e.collapse([]string{clean, glitched, clean})
	if len(segments) != 1 {
		t.Fatalf("expected glitched frame to merge, got %+v", segments)
	}
	if segments[0].Text != clean {
		t.Fatalf("segment should keep the first reading: %+v", segments[0])
	}
	if segments[0].Start != 0 || segments[0].End != 3 {
		t.Fatalf("unexpected span: %+v", segments[0])
	}
}

func TestCollapseDropsShortSegments(t *testing.T) {
	cfg := collapseConfig()
	cfg.MinSegmentSeconds = 3
	e := testExtractor(cfg)
	segments := e.collapse([]string{"你好", "你好"})
	if len(segments) != 0 {
		t.Fatalf("expected sub-minimum segment to be dropped, got %+v", segments)
	}
}

func TestCollapseIgnoresTooShortText(t *testing.T) {
	cfg := collapseConfig()
	cfg.MinChars = 3
	e := testExtractor(cfg)
	segments := e.collapse([]string{"你好", "你好"})
	if len(segments) != 0 {
		t.Fatalf("expected short readings to be treated as blank, got %+v", segments)
	}
}

func TestWithCropOverridesLeavesOriginalUntouched(t *testing.T) {
	cfg := collapseConfig()
	cfg.CropWidthRatio = 0.8
	cfg.CropHeightRatio = 0.2
	cfg.CropBottomPadding = 0.02
	e := testExtractor(cfg)

	width := 1.0
	bottom := 0.3
	clone := e.WithCropOverrides(CropOverrides{WidthRatio: &width, BottomPaddingRatio: &bottom})
	if clone.cfg.CropWidthRatio != 1.0 || clone.cfg.CropBottomPadding != 0.3 {
		t.Fatalf("overrides not applied: %+v", clone.cfg)
	}
	if clone.cfg.CropHeightRatio != 0.2 {
		t.Fatalf("unset override should keep primary value: %+v", clone.cfg)
	}
	if e.cfg.CropWidthRatio != 0.8 || e.cfg.CropBottomPadding != 0.02 {
		t.Fatalf("original extractor mutated: %+v", e.cfg)
	}
}

func TestBuildFiltersClampsAndAppendsExtras(t *testing.T) {
	cfg := collapseConfig()
	cfg.FPS = 2
	cfg.Scale = 3
	cfg.CropWidthRatio = 0.8
	cfg.CropHeightRatio = 0.2
	cfg.CropBottomPadding = 0.9 // above the 0.3 cap
	cfg.ExtraFilters = "eq=contrast=1.2"
	e := testExtractor(cfg)

	got := e.buildFilters()
	want := "fps=2.000,crop=iw*0.8000:ih*0.2000:(iw*(1-0.8000)/2):(ih-(ih*0.2000)-(ih*0.3000)),scale=iw*3:ih*3,eq=contrast=1.2"
	if got != want {
		t.Fatalf("unexpected filter graph:\n got %s\nwant %s", got, want)
	}
}
