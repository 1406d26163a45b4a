// Package textutil provides filename sanitization and case-folded matching.
//
// Sanitizers keep user-supplied artifact and team names from escaping their
// directory. The folding helpers back the search and team comparisons in the
// listing views.
package textutil
