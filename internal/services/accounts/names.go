package accounts

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNameParts bounds how many words of a real name feed username matching.
const maxNameParts = 4

var stripMarkup = bluemonday.StrictPolicy()

// CleanRealName strips markup from a user-supplied real name and collapses
// whitespace.
func CleanRealName(realName string) string {
	cleaned := html.UnescapeString(stripMarkup.Sanitize(realName))
	return strings.Join(strings.Fields(cleaned), " ")
}

// NameParts returns the lowercase ASCII words of realName with diacritics
// removed, e.g. "José de la Peña" -> [jose de la pena].
func NameParts(realName string) []string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		CleanRealName(realName),
	)
	if err != nil {
		folded = realName
	}
	parts := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	if len(parts) > maxNameParts {
		parts = append(parts[:maxNameParts-1], parts[len(parts)-1])
	}
	return parts
}

// basedOnName reports whether username is a concatenation of prefixes of
// the name parts, taken in order or with the last name first.
func basedOnName(username string, parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	if matchesPrefixes(username, parts) {
		return true
	}
	reordered := append([]string{parts[len(parts)-1]}, parts[:len(parts)-1]...)
	return matchesPrefixes(username, reordered)
}

func matchesPrefixes(username string, parts []string) bool {
	if len(parts) == 0 {
		return username == ""
	}
	part := parts[0]
	for k := min(len(part), len(username)); k >= 0; k-- {
		if username[:k] == part[:k] && matchesPrefixes(username[k:], parts[1:]) {
			return true
		}
	}
	return false
}
