package stringutils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugDropChars  = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	slugSeparators = regexp.MustCompile(`[\s_-]+`)
)

// InClause builds positional placeholders for an IN (...) list, numbering
// from start so the list can follow other query arguments.
func InClause[T any](start int, list []T) (placeholders string, args []any) {
	parts := make([]string, len(list))
	args = make([]any, len(list))
	for i, v := range list {
		parts[i] = fmt.Sprintf("$%d", start+i)
		args[i] = v
	}

	return strings.Join(parts, ", "), args
}

// Slugify lower-cases s, strips accents and punctuation and joins the
// remaining words with hyphens. It returns "" when nothing survives.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	slug := strings.ToLower(ascii)
	slug = slugDropChars.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
