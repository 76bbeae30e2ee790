// Package logging configures structured slog logging for the CLI and the
// client core: a compact console handler for interactive runs, a JSON
// handler for machine consumption, attribute helpers, and the standardized
// field keys shared across components.
package logging
