// Package logging assembles structured slog loggers and formatting helpers
// used across docket.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine code automatically
// tags log lines with submission IDs, actors, and correlation IDs. Warnings
// go through WarnWithContext so each one carries an event type, a hint, and
// the user-facing impact.
package logging
