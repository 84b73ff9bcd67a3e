// Package services defines shared utilities consumed by the pipeline stages
// and the HTTP integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, video codes, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into resolution, not-found, upstream, and conversion errors, and the
//     Kind/ExitCode helpers the CLI and API use to report them.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
