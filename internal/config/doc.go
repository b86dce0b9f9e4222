// Package config loads, normalizes, and validates subforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and DEEPL_API_KEY. The Config type centralizes every knob the
// daemon and CLI need, from chunk planning bounds to OCR crop geometry and
// translation provider credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical driver names, and clear validation errors.
package config
