package subtitles

import (
	"math"
	"strings"
	"testing"
)

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{61.5, "00:01:01,500"},
		{3661.004, "01:01:01,004"},
		{1.9996, "00:00:02,000"},
		{59.9996, "00:01:00,000"},
		{3599.9996, "01:00:00,000"},
		{0.0004, "00:00:00,000"},
		{0.0005, "00:00:00,001"},
		{2.345, "00:00:02,345"},
		{360000, "100:00:00,000"},
		{-3, "00:00:00,000"},
		{math.NaN(), "00:00:00,000"},
		{1e16, "100000:00:00,000"},
		{math.Inf(1), "100000:00:00,000"},
	}
	for _, tc := range tests {
		if got := FormatTimecode(tc.seconds); got != tc.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestParseTimecodeRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 1.5, 61.5, 3661.004, 7322.25} {
		got, err := ParseTimecode(FormatTimecode(seconds))
		if err != nil {
			t.Fatalf("ParseTimecode: %v", err)
		}
		if math.Abs(got-seconds) > 0.0005 {
			t.Fatalf("round trip of %v gave %v", seconds, got)
		}
	}
	if got, err := ParseTimecode("00:00:01.250"); err != nil || got != 1.25 {
		t.Fatalf("period separator: %v %v", got, err)
	}
	for _, bad := range []string{"", "00:01,000", "aa:00:00,000", "00:00:00"} {
		if _, err := ParseTimecode(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBuildDocumentNumbersEveryCue(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: 1.5, Text: "first"},
		{Start: 1.5, End: 3, Text: ""},
		{Start: 3, End: 4.25, Text: "line one\nline two"},
	}
	doc := BuildDocument("en", cues)
	if len(doc.Blocks) != len(cues) {
		t.Fatalf("expected %d blocks, got %d", len(cues), len(doc.Blocks))
	}
	for i, block := range doc.Blocks {
		if block.Index != i+1 {
			t.Fatalf("block %d has index %d", i, block.Index)
		}
	}

	want := "1\n00:00:00,000 --> 00:00:01,500\nfirst\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\n\n\n" +
		"3\n00:00:03,000 --> 00:00:04,250\nline one\nline two\n\n"
	if got := doc.String(); got != want {
		t.Fatalf("unexpected SRT:\n%q\nwant\n%q", got, want)
	}
	if doc.Duration() != 4.25 {
		t.Fatalf("unexpected duration %v", doc.Duration())
	}
}

func TestDocumentPlaintextAndRender(t *testing.T) {
	doc := BuildDocument("zh-CN", []Cue{
		{Start: 0, End: 1, Text: " 你好 "},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "世界"},
	})
	if got := doc.Plaintext(); got != "你好\n世界" {
		t.Fatalf("unexpected plaintext %q", got)
	}
	txt, err := doc.Render(FormatText)
	if err != nil || txt != "你好\n世界\n" {
		t.Fatalf("Render(txt) = %q, %v", txt, err)
	}
	srt, err := doc.Render("")
	if err != nil || !strings.HasPrefix(srt, "1\n00:00:00,000 --> 00:00:01,000\n") {
		t.Fatalf("Render(srt) = %q, %v", srt, err)
	}
	if _, err := doc.Render("vtt"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEmptyDocumentRendersNothing(t *testing.T) {
	doc := BuildDocument("en", nil)
	if doc.String() != "" || doc.Plaintext() != "" {
		t.Fatalf("expected empty rendering, got %q", doc.String())
	}
	issues := doc.Validate()
	if len(issues) != 1 || issues[0] != "empty_subtitle_document" {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidateFlagsEmptyText(t *testing.T) {
	doc := BuildDocument("en", []Cue{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 2}})
	issues := doc.Validate()
	if len(issues) != 1 || !strings.HasPrefix(issues[0], "empty_cue_text") {
		t.Fatalf("unexpected issues: %v", issues)
	}
	doc = BuildDocument("en", []Cue{{Start: 0, End: 1, Text: "a"}})
	if issues := doc.Validate(); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}
