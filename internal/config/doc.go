// Package config loads, normalizes, and validates ischool configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file so the analysis
// tool inherits its credentials, and honours ISCHOOL_* environment overrides.
// The Config type centralizes every knob the daemon and CLI need: storage
// locations, worker budgets for both pipelines, the external helper commands,
// and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, bounded worker budgets, and clear validation errors.
package config
