// Package config loads, normalizes, and validates captionforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every empirically-tuned
// constant the alignment engine needs (word match ratios, silence
// thresholds, heuristic pacing) so they can be overridden without a
// rebuild.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
