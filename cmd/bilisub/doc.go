// Command bilisub downloads subtitle tracks from bilibili videos and writes
// them as SRT (or plain text) files.
//
// Usage:
//
//	bilisub fetch BV1xx411c7mD --lang en,zh-CN -o ~/subtitles
//	bilisub tracks https://b23.tv/abc123
//	bilisub history --limit 20
//	bilisub serve --bind 127.0.0.1:7488
//	bilisub config init
//
// Exit status is 0 on success (including videos without subtitles), 2 when
// the reference cannot be resolved, 3 when the video does not exist, 4 for
// upstream failures, 5 for malformed cue data and 1 otherwise.
package main
