// Package textutil provides small text helpers: filename sanitization for
// language keys that become part of output paths, lowercase tokens, and
// rune-aware truncation for table output.
package textutil
