// Package config loads, validates, and normalizes clapper configuration.
//
// Configuration is a TOML file (default ~/.config/clapper/config.toml, with a
// clapper.toml project fallback) merged with environment overrides for
// secrets and connection strings. Load applies defaults, expands paths, and
// validates; a missing Postgres DSN or CDN signing secret is a startup error
// so misconfiguration never surfaces as per-job failures.
package config
