// Package placement moves approved artifacts out of their owner's working
// area into the permanent projects tree.
//
// The destination is <projects>/<team>/<year>/. Before moving, the engine
// probes that the root is mounted and writable, bounded by a timeout so a
// hung share cannot stall an approval. Names never clobber: a taken name
// gets a numeric suffix and then a timestamp. When a provenance sidecar is
// enabled, it also makes placement idempotent across retries. If the
// projects tree is unavailable the artifact is moved to a staging area
// instead, and the caller opens a manual-placement ticket.
package placement
