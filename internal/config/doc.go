// Package config loads, normalizes, and validates taskherd configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the database location in
// priority order: explicit caller override, the TASKHERD_DB_PATH
// environment variable, the config file, and finally the platform default
// under ~/.local/share/taskherd.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
