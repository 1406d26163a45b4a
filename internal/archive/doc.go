// Package archive keeps immutable snapshots of submissions that reached a
// terminal decision.
//
// Entries live in a SQLite database on the shared data root, partitioned into
// an approved and a rejected bucket. Each bucket is capped at the configured
// number of entries; the oldest are evicted first. Snapshots are stored as
// zstd-compressed JSON.
package archive
