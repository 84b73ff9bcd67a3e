// Package history keeps a SQLite log of every subtitle file written, so the
// history command can show what was fetched, when, and where it landed.
package history
