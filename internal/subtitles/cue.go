package subtitles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bilisub/internal/services"
)

const (
	stageConvert = "convert"

	// minCueDuration is added to a cue's start when its end precedes it.
	minCueDuration = 0.001

	// MaxTimestampSeconds is the largest cue time accepted (100000 hours).
	MaxTimestampSeconds = 100_000 * 3600
)

// Cue is one timed caption from the upstream cue list. Times are seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Repair records an adjustment made to a cue so that Start <= End holds.
type Repair struct {
	Position int
	Reason   string
}

type cueList struct {
	Body *[]json.RawMessage `json:"body"`
}

// ParseCues decodes a cue-list payload. Payloads without a body array are
// upstream faults; malformed cues and unusable timestamps are conversion faults. Cues keep their
// delivered order.
func ParseCues(data []byte) ([]Cue, []Repair, error) {
	var list cueList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, nil, services.Wrap(services.ErrUpstream, stageConvert, "parse", "cue list is not valid JSON", err)
	}
	if list.Body == nil {
		return nil, nil, services.Wrap(services.ErrUpstream, stageConvert, "parse", "cue list has no body array", nil)
	}

	cues := make([]Cue, 0, len(*list.Body))
	var repairs []Repair
	for i, element := range *list.Body {
		position := i + 1
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(element, &raw); err != nil {
			return nil, nil, conversionError(position, "cue is not an object")
		}
		start, err := timestampField(raw, position, "from", "start")
		if err != nil {
			return nil, nil, err
		}
		end, err := timestampField(raw, position, "to", "end")
		if err != nil {
			return nil, nil, err
		}
		text, err := textField(raw, position, "content", "text")
		if err != nil {
			return nil, nil, err
		}
		if start < 0 {
			start = 0
			repairs = append(repairs, Repair{Position: position, Reason: "negative start clamped to 0"})
		}
		if end < start {
			end = start + minCueDuration
			repairs = append(repairs, Repair{Position: position, Reason: "end before start moved to start+1ms"})
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues, repairs, nil
}

func lookup(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, string, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			return value, key, true
		}
	}
	return nil, keys[0], false
}

func timestampField(raw map[string]json.RawMessage, position int, keys ...string) (float64, error) {
	value, key, ok := lookup(raw, keys...)
	if !ok {
		return 0, conversionError(position, fmt.Sprintf("missing %q", key))
	}
	value = bytes.TrimSpace(value)

	var number json.Number
	if len(value) > 0 && value[0] == '"' {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return 0, conversionError(position, fmt.Sprintf("%q is not a string", key))
		}
		number = json.Number(strings.TrimSpace(text))
	} else {
		decoder := json.NewDecoder(bytes.NewReader(value))
		decoder.UseNumber()
		var decoded any
		if err := decoder.Decode(&decoded); err != nil {
			return 0, conversionError(position, fmt.Sprintf("%q is not valid JSON", key))
		}
		n, isNumber := decoded.(json.Number)
		if !isNumber {
			return 0, conversionError(position, fmt.Sprintf("%q must be a number, got %s", key, string(value)))
		}
		number = n
	}

	seconds, err := strconv.ParseFloat(string(number), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, conversionError(position, fmt.Sprintf("%q is not numeric: %q", key, string(number)))
	}
	if seconds > MaxTimestampSeconds {
		return 0, conversionError(position, fmt.Sprintf("%q is out of range: %s", key, string(number)))
	}
	return seconds, nil
}

func textField(raw map[string]json.RawMessage, position int, keys ...string) (string, error) {
	value, key, ok := lookup(raw, keys...)
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", conversionError(position, fmt.Sprintf("%q must be a string", key))
	}
	return text, nil
}

func conversionError(position int, message string) error {
	return services.Wrap(services.ErrConversion, stageConvert, "parse", fmt.Sprintf("cue %d: %s", position, message), nil)
}
