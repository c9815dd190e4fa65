// Package config loads, normalizes, and validates eMINDy configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EMINDY_RESULT_SECRET. The Config type centralizes every knob the server,
// the practice player, and the CLI need, so data directories, signing
// secrets, and mail credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical locales, and clear validation errors.
package config
