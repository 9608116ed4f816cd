// Package logging builds the slog loggers used across the pipeline. It
// provides a pretty console handler for interactive use, a JSON handler for
// machine consumption, and helpers that attach component and stage context
// to every record.
package logging
