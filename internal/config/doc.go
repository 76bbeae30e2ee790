// Package config loads and validates Ladle's TOML configuration: backend
// connection settings, tracker and coordinator tuning knobs, the journal
// location, and logging output options.
package config
