// Package language names subtitle language keys for display. Keys are BCP 47
// tags, optionally prefixed with "ai-" for machine-generated tracks.
package language
