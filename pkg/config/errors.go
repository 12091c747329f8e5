package config

import "errors"

// Sentinel errors so callers can distinguish a missing config file from
// a broken one with errors.Is.
var (
	// ErrNotFound means the config file does not exist. Load reports it
	// so the CLI can fall back to Default when no file was asked for.
	ErrNotFound = errors.New("config: file not found")

	// ErrInvalidConfig covers bad YAML and values that fail validation,
	// such as an unknown converter kind or a malformed webhook URL.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired means a field with no usable default was left
	// empty, like listen or reports_dir.
	ErrMissingRequired = errors.New("config: missing required field")
)
