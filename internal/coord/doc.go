// Package coord provides the cross-process advisory locking used to guard
// shared documents on the data root.
//
// Every desktop session runs its own process, so in-memory mutexes cannot
// serialize writers. Instead each guarded key owns a marker file locked with
// flock(2) through gofrs/flock. Acquisition retries with a short doubling
// backoff and gives up with services.ErrBusy once the configured attempt
// bound is exhausted.
package coord
