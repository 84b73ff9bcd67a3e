// Package subtitles converts the platform's cue-list JSON into SubRip
// documents.
//
// Timestamps are formatted as HH:MM:SS,mmm with millisecond rounding, blocks
// are numbered by output position, and cue text is kept verbatim. Cues whose
// timings are inverted or negative are repaired rather than rejected.
package subtitles
