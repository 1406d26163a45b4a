// Package queue persists the global submission queue on the shared data root.
//
// Each active submission is one JSON document named after its id. Writers go
// through the coordinator's per-id advisory lock and publish with an atomic
// rename; readers never lock. Mutate and Take hand the callback a private copy
// of the record so a failed callback leaves the stored document untouched.
//
// The queue holds only submissions awaiting a decision. Terminal outcomes
// leave through Take and live on in the archive.
package queue
