package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Names that reduce to "." or ".." become empty.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SanitizeSegment converts a team or actor name into a single safe path
// segment. Returns fallback when nothing usable remains.
func SanitizeSegment(value, fallback string) string {
	cleaned := SanitizeFileName(value)
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
