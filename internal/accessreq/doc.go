// Package accessreq records manual-placement tickets.
//
// A ticket is opened when an approved artifact cannot reach the projects
// tree. It carries the submission snapshot, the attempted destination, the
// staged copy if staging worked, and the steps an administrator needs. A
// submission has at most one open ticket; closing a ticket is final.
package accessreq
