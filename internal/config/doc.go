// Package config loads, normalizes, and validates stillcut configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// ffmpeg and ffprobe binaries (STILLCUT_FFMPEG, STILLCUT_FFPROBE). Detection
// thresholds are kept as decimal strings in the file and parsed into exact
// timestamps during validation.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
