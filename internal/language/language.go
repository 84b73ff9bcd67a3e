package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// machinePrefix marks machine-generated tracks, e.g. "ai-zh".
const machinePrefix = "ai-"

// IsMachineGenerated reports whether key names an automatically generated track.
func IsMachineGenerated(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), machinePrefix)
}

// BaseKey strips the machine-generated prefix from key.
func BaseKey(key string) string {
	key = strings.TrimSpace(key)
	if IsMachineGenerated(key) {
		return key[len(machinePrefix):]
	}
	return key
}

// Tag parses key as a BCP 47 tag, ignoring any machine-generated prefix.
func Tag(key string) (language.Tag, bool) {
	base := BaseKey(key)
	if base == "" {
		return language.Und, false
	}
	tag, err := language.Parse(base)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// DisplayName returns an English name for a subtitle language key.
// Returns "Unknown" for empty input and the key itself when it does not parse.
// Machine-generated tracks are suffixed with "(auto)".
func DisplayName(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "Unknown"
	}
	name := trimmed
	if tag, ok := Tag(trimmed); ok {
		if resolved := display.English.Tags().Name(tag); resolved != "" {
			name = resolved
		}
	}
	if IsMachineGenerated(trimmed) {
		name += " (auto)"
	}
	return name
}
