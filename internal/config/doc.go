// Package config loads, normalizes, and validates bilisub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// BILISUB_USER_AGENT. The Config type centralizes every knob the CLI and the
// HTTP API need, so upstream endpoints, output directories and history storage
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
