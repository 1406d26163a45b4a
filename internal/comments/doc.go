// Package comments stores free-text notes that any party can attach to a
// submission regardless of its review status.
package comments
