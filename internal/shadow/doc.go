// Package shadow keeps each submitter's private mirror of their own
// submissions.
//
// The ledger lets a user see their drafts, pending reviews, and outcomes
// without scanning the global queue, and it remembers the pre-submission
// state so a withdrawal can put things back exactly as they were. It is
// eventually consistent: pushes that fail are repaired the next time the
// owner lists their submissions.
package shadow
