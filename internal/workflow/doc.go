// Package workflow implements the review operations: submit, resubmit,
// withdraw, team-lead and admin decisions, comments, listings, and manual
// placement tickets.
//
// The queue is authoritative for active submissions and the archive for
// closed ones. Each submitter's shadow ledger is a best-effort mirror that
// listings repair. Every mutation runs under the submission's advisory lock,
// and notification delivery is handed to a bounded background pool.
package workflow
