// Package logging assembles structured slog loggers used across bilisub.
//
// It owns the console and JSON handlers, picks between them based on whether
// output is a terminal, and can tee a JSON copy into a log file. Context
// helpers tag lines with the run correlation ID, pipeline stage, and video
// code. NewNop serves tests and wiring code that cannot fail.
package logging
