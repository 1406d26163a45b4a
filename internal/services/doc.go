// Package services defines shared utilities consumed by every engine
// component.
//
// Key responsibilities:
//   - Context helpers that stamp submission IDs, actors, operation names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     retryable busy lock from a validation refusal or an unreachable share.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the engine.
package services
