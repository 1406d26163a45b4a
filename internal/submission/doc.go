// Package submission defines the review domain: submissions, principals,
// statuses, and the transition graph that every state change is checked
// against.
//
// The graph is pure data. Submission.Apply is the only way a status moves,
// and it refuses out-of-state actions with a TransitionError and missing
// rejection reasons with ErrReasonRequired, so no caller can skip a review
// stage or leave a rejection without a comment.
package submission
