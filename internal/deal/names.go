package deal

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName produces the lookup key for a company or person name:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// CleanName trims surrounding whitespace and trailing punctuation from an
// extracted name ("Acme Corp." -> "Acme Corp") and collapses inner spacing.
func CleanName(s string) string {
	s = whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimRight(s, ".,;:!?'\")( ")
}
