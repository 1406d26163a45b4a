package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s for case-insensitive comparisons.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in any of the haystacks, ignoring
// case. An empty needle matches everything.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	folded := Fold(needle)
	for _, h := range haystacks {
		if strings.Contains(Fold(h), folded) {
			return true
		}
	}
	return false
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(strings.TrimSpace(a)) == Fold(strings.TrimSpace(b))
}
