// Package pipeline wires the resolver, metadata client and converter into a
// single run: resolve the reference, look up identifiers and tracks, select
// languages, then convert and write one file per track.
//
// Empty results are outcomes, not errors. A video with no subtitles or a filter
// that removes every track still succeeds with zero files written.
package pipeline
