package ocr

import (
	"strings"
	"testing"

	"subforge/internal/config"
)

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(fields ...string) string {
	return strings.Join(fields, "\t")
}

func tsvConfig() config.OCR {
	cfg := collapseConfig()
	cfg.MinConfidence = 50
	cfg.MinLineConfidence = 70
	cfg.MinLineHeightRatio = 0.6
	cfg.MinLineBottomRatio = 0.7
	return cfg
}

func TestParseTSVPicksSubtitleLine(t *testing.T) {
	e := testExtractor(tsvConfig())
	tsv := strings.Join([]string{
		tsvHeader,
		// page dimensions
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "1000", "200", "-1", ""),
		// watermark near the top: fails height and bottom filters
		tsvRow("5", "1", "1", "1", "1", "1", "5", "10", "10", "10", "80", "噪"),
		// the actual subtitle line, two words
		tsvRow("5", "1", "2", "1", "1", "1", "10", "150", "40", "40", "95", "字"),
		tsvRow("5", "1", "2", "1", "1", "2", "55", "150", "40", "40", "93", "幕"),
		// low-confidence word on the same line is dropped before grouping
		tsvRow("5", "1", "2", "1", "1", "3", "100", "150", "20", "40", "30", "x"),
	}, "\n")

	if got := e.parseTSV(tsv); got != "字幕" {
		t.Fatalf("expected subtitle text, got %q", got)
	}
}

func TestParseTSVFiltersFallBackRatherThanEmpty(t *testing.T) {
	e := testExtractor(tsvConfig())
	// Every line is below min_line_confidence; the filter must yield the best
	// available line instead of discarding everything.
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "1000", "200", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "10", "150", "40", "40", "60", "弱"),
		tsvRow("5", "1", "1", "1", "2", "1", "10", "150", "40", "40", "55", "い"),
	}, "\n")

	if got := e.parseTSV(tsv); got != "弱" {
		t.Fatalf("expected best low-confidence line, got %q", got)
	}
}

func TestParseTSVRanksByConfidenceThenWidth(t *testing.T) {
	cfg := tsvConfig()
	cfg.MinLineConfidence = 0
	cfg.MinLineHeightRatio = 0
	cfg.MinLineBottomRatio = 0
	e := testExtractor(cfg)
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "1000", "200", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "10", "150", "40", "40", "90", "甲"),
		tsvRow("5", "1", "1", "1", "2", "1", "10", "150", "200", "40", "90", "乙"),
	}, "\n")

	// Equal confidence: the wider line wins.
	if got := e.parseTSV(tsv); got != "乙" {
		t.Fatalf("expected wider line, got %q", got)
	}
}

func TestParseTSVEmptyAndMalformedInput(t *testing.T) {
	e := testExtractor(tsvConfig())
	if got := e.parseTSV(""); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
	if got := e.parseTSV(tsvHeader + "\nnot\ta\tvalid\trow"); got != "" {
		t.Fatalf("expected malformed rows to be skipped, got %q", got)
	}
	// Non-word levels are ignored even with enough columns.
	tsv := tsvHeader + "\n" + tsvRow("4", "1", "1", "1", "1", "0", "10", "150", "40", "40", "95", "段")
	if got := e.parseTSV(tsv); got != "" {
		t.Fatalf("expected non-word rows to be skipped, got %q", got)
	}
}
