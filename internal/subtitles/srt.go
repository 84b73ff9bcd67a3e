package subtitles

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Block is one rendered SRT entry. Index is the 1-based output position.
type Block struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// Document is the SRT rendering of one track.
type Document struct {
	Language string  `json:"language"`
	Blocks   []Block `json:"blocks"`
	cues     []Cue
}

// FormatTimecode renders seconds as HH:MM:SS,mmm. Fractions are rounded to the
// nearest millisecond and may carry into the seconds field; hours widen past
// two digits as needed. Negative and NaN input render as zero; values past
// MaxTimestampSeconds are clamped to it.
func FormatTimecode(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	seconds = min(seconds, MaxTimestampSeconds)
	total := int64(math.Round(seconds * 1000))
	hours := total / 3_600_000
	minutes := (total / 60_000) % 60
	secs := (total / 1000) % 60
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimecode is the inverse of FormatTimecode; a period is accepted in
// place of the comma.
func ParseTimecode(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timecode %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

// BuildDocument numbers cues in order. Every cue becomes a block, including
// cues with empty text, and text is kept verbatim.
func BuildDocument(language string, cues []Cue) Document {
	blocks := make([]Block, len(cues))
	for i, cue := range cues {
		blocks[i] = Block{
			Index: i + 1,
			Start: FormatTimecode(cue.Start),
			End:   FormatTimecode(cue.End),
			Text:  cue.Text,
		}
	}
	return Document{Language: language, Blocks: blocks, cues: cues}
}

// String renders the document as SRT text.
func (d Document) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

// WriteTo writes the SRT rendering to w.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, block := range d.Blocks {
		n, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", block.Index, block.Start, block.End, block.Text)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Plaintext joins the non-empty cue texts with newlines.
func (d Document) Plaintext() string {
	lines := make([]string, 0, len(d.Blocks))
	for _, block := range d.Blocks {
		if text := strings.TrimSpace(block.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// Render returns the document in the named output format (srt or txt).
func (d Document) Render(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatSRT:
		return d.String(), nil
	case FormatText:
		text := d.Plaintext()
		if text != "" {
			text += "\n"
		}
		return text, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// Output formats accepted by Render.
const (
	FormatSRT  = "srt"
	FormatText = "txt"
)

// Duration returns the end of the last cue in seconds.
func (d Document) Duration() float64 {
	var last float64
	for _, cue := range d.cues {
		last = max(last, cue.End)
	}
	return last
}

// Validate reports format issues in d; an empty result means it passed.
func (d Document) Validate() []string {
	var issues []string
	if len(d.Blocks) == 0 {
		return []string{"empty_subtitle_document"}
	}
	empty := 0
	for i, block := range d.Blocks {
		if block.Index != i+1 {
			issues = append(issues, fmt.Sprintf("block_index_gap: position=%d index=%d", i+1, block.Index))
		}
		start, errStart := ParseTimecode(block.Start)
		end, errEnd := ParseTimecode(block.End)
		if errStart != nil || errEnd != nil {
			issues = append(issues, fmt.Sprintf("timestamp_parse_error: block=%d", block.Index))
			continue
		}
		if end < start {
			issues = append(issues, fmt.Sprintf("end_before_start: block=%d", block.Index))
		}
		if strings.TrimSpace(block.Text) == "" {
			empty++
		}
	}
	if empty > 0 {
		issues = append(issues, fmt.Sprintf("empty_cue_text: count=%d", empty))
	}
	return issues
}
